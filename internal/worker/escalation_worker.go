package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/clock"
	"github.com/spec-kit/incident-tracker/internal/domain"
)

// EscalationScanner flags tickets that have breached their SLA.
type EscalationScanner interface {
	CheckForEscalations(ctx context.Context) ([]domain.Ticket, error)
}

// EscalationWorker polls for SLA breaches on a fixed interval.
type EscalationWorker struct {
	scanner  EscalationScanner
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

func NewEscalationWorker(scanner EscalationScanner, clk clock.Clock, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &EscalationWorker{scanner: scanner, clock: clk, interval: interval, logger: logger}
}

// Run scans once immediately and then on every tick until ctx is done.
// Scan failures are logged and the loop continues.
func (w *EscalationWorker) Run(ctx context.Context) {
	ticks, stop := w.clock.NewTicker(w.interval)
	defer stop()

	w.logger.Info("escalation worker started", zap.Duration("interval", w.interval))
	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticks:
			w.scan(ctx)
		}
	}
}

// RunOnce performs a single scan and returns the newly escalated tickets.
func (w *EscalationWorker) RunOnce(ctx context.Context) ([]domain.Ticket, error) {
	return w.scanner.CheckForEscalations(ctx)
}

func (w *EscalationWorker) scan(ctx context.Context) {
	escalated, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("escalation scan failed", zap.Int("escalated", len(escalated)), zap.Error(err))
		return
	}
	for _, t := range escalated {
		w.logger.Warn("sla breached",
			zap.String("ticket_id", t.ID),
			zap.String("priority", string(t.Priority)),
			zap.Time("sla_deadline", t.SLADeadline))
	}
}
