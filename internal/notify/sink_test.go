package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/config"
)

func sampleMessage() Message {
	return Message{
		ID:      "EMAIL-1",
		To:      "manager@company.com",
		Subject: "SLA Breach - Ticket INC-1 Escalated",
		Body:    "URGENT",
		SentAt:  time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
	}
}

func TestMultiAttemptsEverySink(t *testing.T) {
	boom := errors.New("boom")
	var delivered []string
	multi := NewMulti(
		SinkFunc(func(context.Context, Message) error { return boom }),
		SinkFunc(func(_ context.Context, msg Message) error {
			delivered = append(delivered, msg.ID)
			return nil
		}),
	)

	err := multi.Send(context.Background(), sampleMessage())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(delivered) != 1 || delivered[0] != "EMAIL-1" {
		t.Fatalf("delivered = %v", delivered)
	}
}

func TestDelayHonoursCancellation(t *testing.T) {
	called := false
	d := NewDelay(SinkFunc(func(context.Context, Message) error {
		called = true
		return nil
	}), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Send(ctx, sampleMessage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("next sink must not be called after cancellation")
	}
}

func TestDelayPassesThrough(t *testing.T) {
	called := false
	d := NewDelay(SinkFunc(func(context.Context, Message) error {
		called = true
		return nil
	}), time.Millisecond)
	if err := d.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !called {
		t.Fatal("next sink not called")
	}
}

func TestWebhookSinkPostsJSON(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second)
	if err := sink.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.ID != "EMAIL-1" || got.To != "manager@company.com" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestWebhookSinkRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookSink(srv.URL, time.Second).Send(context.Background(), sampleMessage()); err == nil {
		t.Fatal("expected error for 502")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkKeysByRecipient(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	if err := sink.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "manager@company.com" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	var decoded Message
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Subject != sampleMessage().Subject {
		t.Fatalf("subject = %q", decoded.Subject)
	}

	if err := sink.Close(); err != nil || !w.closed {
		t.Fatalf("close err=%v closed=%v", err, w.closed)
	}
	if err := sink.Send(context.Background(), sampleMessage()); !errors.Is(err, ErrSinkClosed) {
		t.Fatalf("err = %v, want ErrSinkClosed", err)
	}
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMQTT struct {
	mqtt.Client
	topic   string
	payload []byte
}

func (c *fakeMQTT) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.payload = payload.([]byte)
	return doneToken{}
}

func TestMQTTSinkPublishesToTopic(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, "incidents/notifications")

	if err := sink.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.topic != "incidents/notifications" {
		t.Fatalf("topic = %q", client.topic)
	}
	var decoded Message
	if err := json.Unmarshal(client.payload, &decoded); err != nil || decoded.ID != "EMAIL-1" {
		t.Fatalf("payload = %s err=%v", client.payload, err)
	}
}

func TestBuildDefaultsToLogSink(t *testing.T) {
	cfg := &config.Config{}
	sink, closer, err := Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := sink.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuildWrapsDelay(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notification.SimulatedDelay = time.Millisecond
	sink, _, err := Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := sink.(*Delay); !ok {
		t.Fatalf("sink = %T, want *Delay", sink)
	}
}
