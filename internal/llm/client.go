package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atmb4u/gamegirl/internal/story"
)

const (
	defaultTimeout     = 120 * time.Second
	defaultMaxAttempts = 3
)

// Config tunes the retrying client.
type Config struct {
	Timeout     time.Duration // per attempt
	MaxAttempts int
	RetryDelay  time.Duration // grows linearly with the attempt number
	MaxTokens   int
}

// Client sends structured requests to a Provider and decodes the replies.
type Client struct {
	provider Provider
	cfg      Config
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewClient(p Provider, cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{provider: p, cfg: cfg, log: log, sleep: sleepCtx}
}

// Generate asks for kind and decodes the JSON reply into out. The whole
// request is retried on provider errors and on unparseable replies.
func (c *Client) Generate(ctx context.Context, kind Kind, prompt string, out any) error {
	req := Request{Kind: kind, Prompt: prompt, MaxTokens: c.cfg.MaxTokens}
	log := c.log.With(zap.String("provider", c.provider.Name()), zap.String("kind", string(kind)))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := c.attempt(ctx, req, out)
		if err == nil {
			log.Debug("generation succeeded",
				zap.Int("attempt", attempt),
				zap.Int("prompt_bytes", len(prompt)),
				zap.Duration("duration", time.Since(start)))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
		log.Warn("generation attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxAttempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))

		if attempt < c.cfg.MaxAttempts {
			if err := c.sleep(ctx, c.cfg.RetryDelay*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrGenerationFailed, kind, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	text, err := c.provider.Generate(ctx, req)
	if err != nil {
		return err
	}
	raw := ExtractJSON(text)
	if raw == "" {
		return ErrInvalidResponse
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return checkShape(out)
}

// checkShape rejects replies that decoded cleanly but lack the fields their
// kind needs, so the attempt is retried.
func checkShape(out any) error {
	switch v := out.(type) {
	case *story.Choices:
		for _, c := range v.Choices {
			if strings.TrimSpace(c.Choice) != "" {
				return nil
			}
		}
		return fmt.Errorf("%w: no choices", ErrInvalidResponse)
	case *story.Consequence:
		if strings.TrimSpace(v.Consequence) == "" {
			return fmt.Errorf("%w: empty consequence", ErrInvalidResponse)
		}
	case *story.Answer:
		if strings.TrimSpace(v.Answer) == "" {
			return fmt.Errorf("%w: empty answer", ErrInvalidResponse)
		}
	}
	return nil
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
