package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"newsdigest/internal/collector"
	"newsdigest/internal/domain"
	"newsdigest/internal/storage"
)

// Status describes how a tick ended.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusEmpty          Status = "empty"
	StatusSummaryFailed  Status = "summary_failed"
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery_failed"
	StatusStoreError     Status = "store_error"
	StatusInterrupted    Status = "interrupted"
)

// Outcome summarizes one invocation of Tick.
type Outcome struct {
	RunID     string      `json:"run_id"`
	Kind      domain.Kind `json:"kind,omitempty"`
	Window    string      `json:"window,omitempty"`
	Status    Status      `json:"status"`
	Items     int         `json:"items"`
	Delivered int         `json:"delivered"`
}

// Collector gathers candidate items for one window.
type Collector interface {
	Collect(ctx context.Context, opts collector.Options) []domain.CandidateItem
}

// Summarizer turns candidates into digest content.
type Summarizer interface {
	Flash(ctx context.Context, items []domain.CandidateItem) ([]domain.DigestEntry, error)
	DeepDive(ctx context.Context, items []domain.CandidateItem) (domain.DeepDive, error)
}

// Publisher delivers a formatted message to the channel.
type Publisher interface {
	Publish(ctx context.Context, msg domain.Message) error
}

// Config holds the schedule and the collection caps of both paths.
type Config struct {
	// StartHour and EndHour bound the hourly publishing range [StartHour, EndHour).
	StartHour int
	EndHour   int
	// DeepDiveHour is the hour in which the daily deep-dive takes priority.
	DeepDiveHour int

	Hourly collector.Options
	Deep   collector.Options

	// AttachImage sends the deep-dive as a photo when a lead image is available.
	AttachImage bool

	// Location is the time zone windows are computed in. Nil means UTC.
	Location *time.Location
}

// Deps wires the scheduler's collaborators.
type Deps struct {
	Windows    storage.WindowLedger
	Collector  Collector
	Summarizer Summarizer
	Publisher  Publisher
	Metrics    *Metrics
	Logger     logrus.FieldLogger
	Config     Config
	// NewRunID overrides run id generation in tests.
	NewRunID func() string
}

// Scheduler decides, per tick, between a no-op, an hourly digest and the daily deep-dive.
// Window state lives only in the window ledger: a window is pending until MarkCompleted.
type Scheduler struct {
	windows    storage.WindowLedger
	collector  Collector
	summarizer Summarizer
	publisher  Publisher
	metrics    *Metrics
	log        logrus.FieldLogger
	cfg        Config
	newRunID   func() string
}

// NewScheduler builds a scheduler. Hourly collection always consumes links and the
// deep-dive collection never does, whatever the caller put in the options.
func NewScheduler(deps Deps) *Scheduler {
	cfg := deps.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.Hourly.MarkPosted = true
	cfg.Deep.MarkPosted = false

	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	return &Scheduler{
		windows:    deps.Windows,
		collector:  deps.Collector,
		summarizer: deps.Summarizer,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        deps.Logger.WithField("component", "scheduler"),
		cfg:        cfg,
		newRunID:   newRunID,
	}
}

// Tick runs at most one window for the wall-clock time now. It returns an error
// only when the window ledger fails or ctx is cancelled, in which case the window
// stays pending.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (Outcome, error) {
	local := now.In(s.cfg.Location)
	out := Outcome{RunID: s.newRunID(), Status: StatusIdle}
	log := s.log.WithFields(logrus.Fields{"run_id": out.RunID, "at": local.Format(time.RFC3339)})

	hour := local.Hour()

	if hour == s.cfg.DeepDiveHour {
		key := domain.ProWindow(local)
		pending, err := s.pending(ctx, key)
		if err != nil {
			return s.storeFailure(log, out, key, err)
		}
		if pending {
			return s.run(ctx, log, out, key, s.deepDive)
		}
	}

	if hour >= s.cfg.StartHour && hour < s.cfg.EndHour {
		key := domain.FlashWindow(local)
		pending, err := s.pending(ctx, key)
		if err != nil {
			return s.storeFailure(log, out, key, err)
		}
		if pending {
			return s.run(ctx, log, out, key, s.hourly)
		}
	}

	log.Info("No window due")
	s.metrics.observeTick(out)
	return out, nil
}

type path func(ctx context.Context, log logrus.FieldLogger, out Outcome) Outcome

// run executes one path and marks the window completed whatever the path reports.
func (s *Scheduler) run(ctx context.Context, log logrus.FieldLogger, out Outcome, key domain.WindowKey, p path) (Outcome, error) {
	started := time.Now()
	out.Kind = key.Kind
	out.Window = key.String()
	log = log.WithFields(logrus.Fields{"kind": key.Kind, "window": out.Window})
	log.Info("Window pending, running")

	out = p(ctx, log, out)

	// A cancelled tick is not an attempt and leaves the window pending, unless the
	// message already went out.
	if err := ctx.Err(); err != nil {
		if out.Status != StatusDelivered {
			out.Status = StatusInterrupted
			log.WithError(err).Warn("Tick cancelled, window left pending")
			s.metrics.observeTick(out)
			return out, fmt.Errorf("window %s: %w", out.Window, err)
		}
		ctx = context.WithoutCancel(ctx)
	}

	if err := s.windows.MarkCompleted(ctx, out.Window); err != nil {
		return s.storeFailure(log, out, key, err)
	}

	s.metrics.observeRun(out, time.Since(started))
	log.WithFields(logrus.Fields{
		"status":    out.Status,
		"items":     out.Items,
		"delivered": out.Delivered,
	}).Info("Window completed")
	return out, nil
}

func (s *Scheduler) pending(ctx context.Context, key domain.WindowKey) (bool, error) {
	done, err := s.windows.IsCompleted(ctx, key.String())
	if err != nil {
		return false, err
	}
	return !done, nil
}

func (s *Scheduler) storeFailure(log logrus.FieldLogger, out Outcome, key domain.WindowKey, err error) (Outcome, error) {
	out.Kind = key.Kind
	out.Window = key.String()
	out.Status = StatusStoreError
	log.WithError(err).WithField("window", out.Window).Error("Window ledger unavailable, window left pending")
	s.metrics.observeTick(out)
	return out, fmt.Errorf("window %s: %w", out.Window, err)
}

func (s *Scheduler) hourly(ctx context.Context, log logrus.FieldLogger, out Outcome) Outcome {
	items := s.collector.Collect(ctx, s.cfg.Hourly)
	out.Items = len(items)
	if len(items) == 0 {
		log.Info("No new items for this hour")
		out.Status = StatusEmpty
		return out
	}

	entries, err := s.summarizer.Flash(ctx, items)
	if err != nil {
		log.WithError(err).Error("Flash summarization failed, skipping window")
		out.Status = StatusSummaryFailed
		return out
	}

	msg := domain.Message{Text: FormatFlash(entries), HTML: true}
	return s.deliver(ctx, log, out, msg, len(entries))
}

func (s *Scheduler) deepDive(ctx context.Context, log logrus.FieldLogger, out Outcome) Outcome {
	items := s.collector.Collect(ctx, s.cfg.Deep)
	out.Items = len(items)
	if len(items) == 0 {
		log.Info("No items for the deep-dive")
		out.Status = StatusEmpty
		return out
	}

	dive, err := s.summarizer.DeepDive(ctx, items)
	if err != nil {
		log.WithError(err).Error("Deep-dive summarization failed, skipping window")
		out.Status = StatusSummaryFailed
		return out
	}

	msg := domain.Message{Text: FormatDeepDive(dive), HTML: true}
	if s.cfg.AttachImage {
		msg.Image = leadImage(items)
	}
	return s.deliver(ctx, log, out, msg, 1)
}

func (s *Scheduler) deliver(ctx context.Context, log logrus.FieldLogger, out Outcome, msg domain.Message, n int) Outcome {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.WithError(err).Error("Delivery failed, window will not be retried")
		out.Status = StatusDeliveryFailed
		return out
	}
	out.Status = StatusDelivered
	out.Delivered = n
	return out
}

func leadImage(items []domain.CandidateItem) string {
	for _, item := range items {
		if item.Image != "" {
			return item.Image
		}
	}
	return ""
}
