package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GRPCAddr != ":50051" {
		t.Errorf("expected GRPCAddr :50051, got %s", cfg.GRPCAddr)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.KafkaBrokers != "" {
		t.Error("kafka must be disabled by default")
	}
	if cfg.KafkaTopic != "pos.sale.events" {
		t.Errorf("unexpected kafka topic %s", cfg.KafkaTopic)
	}
	if cfg.OutboxPollInterval <= 0 {
		t.Error("expected OutboxPollInterval to be > 0")
	}
	if cfg.OutboxBatchSize <= 0 {
		t.Error("expected OutboxBatchSize to be > 0")
	}
	if cfg.OutboxMaxAttempts <= 0 {
		t.Error("expected OutboxMaxAttempts to be > 0")
	}
	if cfg.OutboxRetryDelay < 0 {
		t.Error("expected OutboxRetryDelay to be >= 0")
	}
	if cfg.OutboxMaxAge <= 0 {
		t.Error("expected OutboxMaxAge to be > 0")
	}
	if cfg.IdempotencyCleanupInterval <= 0 {
		t.Error("expected IdempotencyCleanupInterval to be > 0")
	}
	if cfg.IdempotencyCleanupBatchSize <= 0 {
		t.Error("expected IdempotencyCleanupBatchSize to be > 0")
	}
	if !cfg.SeedSampleData {
		t.Error("expected SeedSampleData to be true")
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("expected LowStockThreshold 5, got %d", cfg.LowStockThreshold)
	}
}

func TestDefaultConfig_TimezoneLoads(t *testing.T) {
	loc, err := loadLocation(DefaultConfig().Timezone)
	if err != nil {
		t.Fatalf("default timezone must load: %v", err)
	}
	if loc.String() != "America/Lima" {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := loadLocation("")
	if err != nil || loc != time.UTC {
		t.Fatalf("empty timezone must map to UTC, got %v, %v", loc, err)
	}
	if _, err := loadLocation("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestConfig_Comparison(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg2 := DefaultConfig()

	if cfg1 != cfg2 {
		t.Error("two DefaultConfig instances should be equal")
	}

	cfg2.GRPCAddr = ":8081"
	if cfg1 == cfg2 {
		t.Error("modified config should not be equal to original")
	}
}

func TestConfig_ZeroValue(t *testing.T) {
	var cfg Config

	if cfg.GRPCAddr != "" || cfg.MetricsAddr != "" || cfg.StorageDriver != "" {
		t.Errorf("zero value config must be empty, got %#v", cfg)
	}
	if cfg.PostgresAutoMigrate || cfg.SeedSampleData {
		t.Error("zero value flags must be false")
	}
}
