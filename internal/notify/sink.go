package notify

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// Message is the transport-neutral form of a recorded notification.
type Message struct {
	ID      string    `json:"id"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// Sink delivers a notification somewhere outside the process.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogSink writes notifications to the structured log instead of sending them.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification sent",
		zap.String("notification_id", msg.ID),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Time("sent_at", msg.SentAt),
	)
	return nil
}

// Multi fans a message out to every sink. All sinks are attempted and
// their failures joined.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a connection.
func (m *Multi) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Delay holds each message for a fixed latency before passing it on,
// mimicking a slow mail relay.
type Delay struct {
	next  Sink
	delay time.Duration
}

func NewDelay(next Sink, delay time.Duration) *Delay {
	return &Delay{next: next, delay: delay}
}

func (d *Delay) Send(ctx context.Context, msg Message) error {
	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return d.next.Send(ctx, msg)
}

func (d *Delay) Close() error {
	if c, ok := d.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
