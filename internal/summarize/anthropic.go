package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// TierModel names the model and output budget used for one tier.
type TierModel struct {
	Model     string
	MaxTokens int64
}

// AnthropicConfig configures the Anthropic-backed generator.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Fast       TierModel
	Deep       TierModel
	Timeout    time.Duration
	MaxRetries int
}

// AnthropicGenerator implements Generator with the Messages API.
// Both tiers share the same contract and differ only in model and token budget.
type AnthropicGenerator struct {
	client  anthropic.Client
	tiers   map[Tier]TierModel
	timeout time.Duration
	log     logrus.FieldLogger
}

var _ Generator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator builds a client from configuration.
func NewAnthropicGenerator(cfg AnthropicConfig, logger logrus.FieldLogger) *AnthropicGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicGenerator{
		client:  anthropic.NewClient(opts...),
		tiers:   map[Tier]TierModel{TierFast: cfg.Fast, TierDeep: cfg.Deep},
		timeout: cfg.Timeout,
		log:     logger.WithField("component", "anthropic"),
	}
}

// Generate sends prompt as a single user message to the tier's model.
func (a *AnthropicGenerator) Generate(ctx context.Context, tier Tier, prompt string) (string, error) {
	model, ok := a.tiers[tier]
	if !ok || model.Model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	maxTokens := model.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	a.log.WithFields(logrus.Fields{
		"tier":          tier,
		"model":         model.Model,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"duration":      time.Since(start).String(),
	}).Info("AI call completed")

	return text.String(), nil
}
