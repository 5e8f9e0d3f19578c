package domain

import (
	"fmt"
	"time"
)

// Kind names a digest type and doubles as the ledger key prefix.
type Kind string

const (
	KindFlash Kind = "FLASH"
	KindPro   Kind = "PRO"
	KindLink  Kind = "LINK"
)

const (
	hourBucketLayout = "2006-01-02-15"
	dayBucketLayout  = "2006-01-02"
)

// WindowKey identifies a delivery window.
type WindowKey struct {
	Kind Kind
	ID   string
}

// String renders the composite ledger key, e.g. FLASH:2024-06-01-09.
func (k WindowKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// FlashWindow returns the hourly window containing t. t must already be in the pipeline time zone.
func FlashWindow(t time.Time) WindowKey {
	return WindowKey{Kind: KindFlash, ID: t.Format(hourBucketLayout)}
}

// ProWindow returns the daily deep-dive window containing t.
func ProWindow(t time.Time) WindowKey {
	return WindowKey{Kind: KindPro, ID: t.Format(dayBucketLayout)}
}

// LinkKey returns the ledger key of a processed link.
func LinkKey(link string) string {
	return fmt.Sprintf("%s:%s", KindLink, link)
}
