package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
)

func TestInitRuntimeDependencies_MemoryWiresEveryRepository(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, quietEntry("memory"))
	require.NoError(t, err)
	defer deps.close(quietEntry("memory-close"))

	assert.NotNil(t, deps.uow)
	assert.NotNil(t, deps.outboxRepo)
	assert.NotNil(t, deps.timelineRepo)
	assert.NotNil(t, deps.idempotencyRepo)
	assert.Nil(t, deps.redisChecker, "redis checker is only registered when POS_REDIS_ADDR is set")

	require.NotNil(t, deps.storageChecker)
	assert.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)

	stats, err := deps.outboxRepo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.PendingCount)
}

func TestInitRuntimeDependencies_EmptyDriverMeansMemory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: " "}, quietEntry("empty"))
	require.NoError(t, err)
	assert.Nil(t, deps.closeFn)
}

func TestInitRuntimeDependencies_RejectsBadStorageConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]Config{
		"postgres without dsn": {StorageDriver: StorageDriverPostgres},
		"unsupported driver":   {StorageDriver: "sqlite"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := initRuntimeDependencies(context.Background(), cfg, quietEntry(name))
			assert.Error(t, err)
		})
	}
}
