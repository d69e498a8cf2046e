package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookSink POSTs each message as JSON to a fixed URL.
type WebhookSink struct {
	url     string
	timeout time.Duration
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSink{url: url, timeout: timeout}
}

func (s *WebhookSink) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(s.url)
	agent.JSON(msg)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", s.url, errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("webhook %s: status %d: %s", s.url, code, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
