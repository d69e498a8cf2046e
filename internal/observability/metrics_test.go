package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/spec-kit/incident-tracker/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TicketCreated()
	m.TicketCreated()
	m.TicketsEscalated(3)
	m.NotificationRecorded("escalation")
	m.RecordRequest("/tickets", "GET", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.ticketsCreated); got != 2 {
		t.Fatalf("tickets created = %v", got)
	}
	if got := testutil.ToFloat64(m.escalations); got != 3 {
		t.Fatalf("escalations = %v", got)
	}
	if got := testutil.ToFloat64(m.notifications.WithLabelValues("escalation")); got != 1 {
		t.Fatalf("notifications = %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/tickets", "GET", "200")); got != 1 {
		t.Fatalf("requests = %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.TicketCreated()
	m.TicketDeleted()
	m.TicketsEscalated(1)
	m.NotificationRecorded("created")
	m.DeliveryFailed()
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
}

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(0) {
		t.Fatal("info level must be enabled")
	}
}
