package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":50051" {
		t.Fatalf("expected GRPCAddr :50051, got %s", cfg.GRPCAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Fatalf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Fatalf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Fatal("expected PostgresAutoMigrate to be true")
	}
	if cfg.KafkaBrokers != "" {
		t.Fatalf("expected kafka to be disabled by default, got %q", cfg.KafkaBrokers)
	}
	if cfg.OutboxPollInterval <= 0 || cfg.OutboxBatchSize <= 0 || cfg.OutboxMaxAttempts <= 0 {
		t.Fatalf("outbox defaults must be positive: %+v", cfg)
	}
	if cfg.OutboxRetryDelay < 0 {
		t.Fatal("expected OutboxRetryDelay to be >= 0")
	}
	if cfg.OutboxMaxPendingAge < time.Minute {
		t.Fatalf("unexpected OutboxMaxPendingAge: %s", cfg.OutboxMaxPendingAge)
	}
}

func TestConfig_Comparison(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg2 := DefaultConfig()
	if cfg1 != cfg2 {
		t.Fatal("two DefaultConfig instances should be equal")
	}

	cfg2.KafkaBrokers = "localhost:9092"
	if cfg1 == cfg2 {
		t.Fatal("modified config should not be equal to original")
	}
}

func TestSplitBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{" , ", []string{}},
		{"a:9092", []string{"a:9092"}},
		{"a:9092, b:9092 ,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
	}

	for _, tt := range tests {
		got := splitBrokers(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("splitBrokers(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("splitBrokers(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
