package vision

import (
	"context"
	"log/slog"
	"time"

	"github.com/finforge/pdf2sheet/internal/common"
)

// Model is the raw capability: image plus prompt in, delimited text out.
type Model interface {
	Complete(ctx context.Context, pngBytes []byte, prompt string) (string, error)
}

// Caller wraps a Model with bounded exponential backoff. Retry policy
// lives here so call sites never open-code their own loops; after the
// attempts are exhausted the terminal outcome is ErrCapabilityUnavailable.
type Caller struct {
	model   Model
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

func NewCaller(model Model, retries int, backoff time.Duration, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Caller{model: model, retries: retries, backoff: backoff, logger: logger}
}

func (c *Caller) Complete(ctx context.Context, pngBytes []byte, prompt string) (string, error) {
	var lastErr error
	delay := c.backoff
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("vision.retry",
				"attempt", attempt,
				"max_attempts", c.retries+1,
				"delay_ms", delay.Milliseconds(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		out, err := c.model.Complete(ctx, pngBytes, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", common.NewAppError("VISION_EXHAUSTED", "retries exhausted", common.ErrCapabilityUnavailable)
}
