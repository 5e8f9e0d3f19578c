package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"newsdigest/internal/domain"
)

// CaptionLimit is Telegram's cap on photo captions.
const CaptionLimit = 1024

// Config holds what the publisher needs to reach the channel.
type Config struct {
	Token     string
	ChatID    string
	ServerURL string
}

// Publisher delivers digest messages to a Telegram chat or channel.
type Publisher struct {
	bot    *tgbot.Bot
	chatID any
	log    logrus.FieldLogger
}

// NewPublisher creates the bot client. It does not call getMe, so construction
// never touches the network.
func NewPublisher(cfg Config, logger logrus.FieldLogger) (*Publisher, error) {
	log := logger.WithField("component", "publisher")

	opts := []tgbot.Option{tgbot.WithSkipGetMe()}
	if cfg.ServerURL != "" {
		opts = append(opts, tgbot.WithServerURL(cfg.ServerURL))
	}

	b, err := tgbot.New(cfg.Token, opts...)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Publisher{bot: b, chatID: chatID(cfg.ChatID), log: log}, nil
}

// chatID keeps numeric ids numeric and passes @channel names through.
func chatID(raw string) any {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	return raw
}

// Publish sends msg. With an image it sends a photo whose caption is truncated to
// CaptionLimit, falling back to a plain text message if the photo is rejected.
func (p *Publisher) Publish(ctx context.Context, msg domain.Message) error {
	log := p.log.WithFields(logrus.Fields{"chars": utf8.RuneCountInString(msg.Text), "image": msg.Image != ""})

	parseMode := models.ParseMode("")
	caption := Caption
	if msg.HTML {
		parseMode = models.ParseModeHTML
		caption = HTMLCaption
	}

	if msg.Image != "" {
		_, err := p.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:    p.chatID,
			Photo:     &models.InputFileString{Data: msg.Image},
			Caption:   caption(msg.Text),
			ParseMode: parseMode,
		})
		if err == nil {
			log.Info("Digest photo published")
			return nil
		}
		log.WithError(err).Warn("Photo rejected, falling back to text message")
	}

	_, err := p.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    p.chatID,
		Text:      msg.Text,
		ParseMode: parseMode,
	})
	if err != nil {
		log.WithError(err).Error("Failed to publish digest")
		return fmt.Errorf("send message: %w", err)
	}

	log.Info("Digest published")
	return nil
}

// Caption truncates text to CaptionLimit runes.
func Caption(text string) string {
	if utf8.RuneCountInString(text) <= CaptionLimit {
		return text
	}
	return string([]rune(text)[:CaptionLimit-1]) + "…"
}

var tagPattern = regexp.MustCompile(`<(/?)([a-zA-Z]+)[^>]*>`)

// HTMLCaption truncates HTML text to CaptionLimit runes without splitting an
// entity or a tag, and closes the tags the cut left open.
func HTMLCaption(text string) string {
	if utf8.RuneCountInString(text) <= CaptionLimit {
		return text
	}
	runes := []rune(text)
	for n := CaptionLimit - 1; n > 0; n-- {
		cut := string(runes[:safeCut(runes[:n])])
		closers := closeTags(cut)
		if utf8.RuneCountInString(cut)+1+utf8.RuneCountInString(closers) <= CaptionLimit {
			return cut + "…" + closers
		}
	}
	return "…"
}

// safeCut returns a length that ends before any unfinished tag or entity.
func safeCut(runes []rune) int {
	n := len(runes)
	s := string(runes)
	if lt := strings.LastIndex(s, "<"); lt > strings.LastIndex(s, ">") {
		n = utf8.RuneCountInString(s[:lt])
		s = s[:lt]
	}
	if amp := strings.LastIndex(s, "&"); amp > strings.LastIndex(s, ";") {
		n = utf8.RuneCountInString(s[:amp])
	}
	return n
}

func closeTags(s string) string {
	var open []string
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[2])
		if m[1] == "" {
			open = append(open, name)
			continue
		}
		if len(open) > 0 && open[len(open)-1] == name {
			open = open[:len(open)-1]
		}
	}
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "</%s>", open[i])
	}
	return b.String()
}
