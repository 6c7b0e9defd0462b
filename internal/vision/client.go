package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/finforge/pdf2sheet/internal/common"
)

// Client wraps the Anthropic messages API as the vision capability:
// one page image and one prompt in, raw delimited text out. Temperature
// is pinned from config (0 by default) so repeated calls on the same page
// return identical output; a non-zero setting historically produced
// divergent tables across runs.
type Client struct {
	cfg      common.VisionConfig
	messages anthropic.MessageService
	logger   *slog.Logger
}

func NewClient(cfg common.VisionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		cfg:      cfg,
		messages: anthropic.NewMessageService(opts...),
		logger:   logger,
	}
}

// Complete sends the page image and prompt and returns the model's text.
func (c *Client) Complete(ctx context.Context, pngBytes []byte, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("vision.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"temperature", c.cfg.Temperature,
		"image_bytes", len(pngBytes),
	)

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	encoded := base64.StdEncoding.EncodeToString(pngBytes)
	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: anthropic.Float(c.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", encoded),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		c.logger.Error("vision.request_failed",
			"req_id", rid,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty vision response")
	}

	c.logger.Info("vision.response",
		"req_id", rid,
		"chars", sb.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sb.String(), nil
}
