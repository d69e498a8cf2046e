package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("ESCALATION_INTERVAL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SEED_DEMO_DATA", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("backend = %q, want %q", cfg.Storage.Backend, BackendFile)
	}
	if cfg.Escalation.Interval != time.Minute {
		t.Fatalf("interval = %s", cfg.Escalation.Interval)
	}
	if cfg.Notification.ManagerAddress != "manager@company.com" {
		t.Fatalf("manager address = %q", cfg.Notification.ManagerAddress)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if !cfg.Seed.Demo {
		t.Fatal("demo seeding should be on by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("ESCALATION_INTERVAL", "15s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("NOTIFY_SIMULATED_DELAY", "500ms")
	t.Setenv("SEED_DEMO_DATA", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendRedis {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Escalation.Interval != 15*time.Second {
		t.Fatalf("interval = %s", cfg.Escalation.Interval)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Notification.SimulatedDelay != 500*time.Millisecond {
		t.Fatalf("delay = %s", cfg.Notification.SimulatedDelay)
	}
	if cfg.Seed.Demo {
		t.Fatal("SEED_DEMO_DATA=false should disable seeding")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "localstorage")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
