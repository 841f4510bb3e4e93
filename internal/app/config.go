package app

import (
	"time"
	// Часовой пояс ресторана должен загружаться и без системной tzdata.
	_ "time/tzdata"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса кассы.
// Значения сравнимы, чтобы тесты могли сравнивать конфигурацию целиком.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string

	// KafkaBrokers: брокеры через запятую; пусто отключает Kafka.
	KafkaBrokers string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxAge задаёт возраст самого старого pending-сообщения, после которого health деградирует.
	OutboxMaxAge time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	SeedSampleData    bool
	Timezone          string
	RateLimit         string
	LowStockThreshold int
}

// DefaultConfig возвращает настройки для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		KafkaTopic:                  "pos.sale.events",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           5,
		OutboxRetryDelay:            50 * time.Millisecond,
		OutboxMaxAge:                5 * time.Minute,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		SeedSampleData:              true,
		Timezone:                    "America/Lima",
		RateLimit:                   "600-M",
		LowStockThreshold:           5,
	}
}
