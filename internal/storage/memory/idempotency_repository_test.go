package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

var idemNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time { return func() time.Time { return idemNow } }

func TestIdempotencyRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))
	ttl := idemNow.Add(2 * time.Hour)

	created, err := repo.CreateProcessing(ctx, " create-sale-1 ", "hash-1", ttl)
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusProcessing, created.Status)
	assert.Equal(t, "create-sale-1", created.Key)

	got, err := repo.Get(ctx, "create-sale-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.RequestHash)
	assert.True(t, got.TTLAt.Equal(ttl))

	_, err = repo.CreateProcessing(ctx, "  ", "hash", ttl)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
	_, err = repo.CreateProcessing(ctx, "k", "", ttl)
	assert.ErrorIs(t, err, domain.ErrIdempotencyRequestHashRequired)
}

func TestIdempotencyRepository_ZeroTTLUsesDefault(t *testing.T) {
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))

	rec, err := repo.CreateProcessing(context.Background(), "k", "h", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, idemNow.Add(24*time.Hour), rec.TTLAt)
}

func TestIdempotencyRepository_ConflictAndHashMismatch(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))
	ttl := idemNow.Add(time.Hour)

	_, err := repo.CreateProcessing(ctx, "create-sale-2", "hash-a", ttl)
	require.NoError(t, err)

	existing, err := repo.CreateProcessing(ctx, "create-sale-2", "hash-a", ttl)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	assert.Equal(t, "hash-a", existing.RequestHash)

	_, err = repo.CreateProcessing(ctx, "create-sale-2", "hash-b", ttl)
	assert.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestIdempotencyRepository_ExpiredKeyCanBeReused(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))

	_, err := repo.CreateProcessing(ctx, "create-sale-3", "hash-a", idemNow.Add(-time.Second))
	require.NoError(t, err)

	rec, err := repo.CreateProcessing(ctx, "create-sale-3", "hash-b", idemNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "hash-b", rec.RequestHash)
}

func TestIdempotencyRepository_MarkDoneCopiesResponse(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))

	_, err := repo.CreateProcessing(ctx, "idem-active", "hash-active", idemNow.Add(time.Hour))
	require.NoError(t, err)

	body := []byte(`{"id":"sale-1"}`)
	require.NoError(t, repo.MarkDone(ctx, "idem-active", body, 201))
	body[2] = 'X'

	active, err := repo.Get(ctx, "idem-active")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusDone, active.Status)
	assert.Equal(t, 201, active.HTTPStatus)
	assert.Equal(t, `{"id":"sale-1"}`, string(active.ResponseBody))

	require.NoError(t, repo.MarkFailed(ctx, "idem-active", nil, 500))
	failed, err := repo.Get(ctx, "idem-active")
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyStatusFailed, failed.Status)

	assert.ErrorIs(t, repo.MarkDone(ctx, "missing", nil, 200), domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyRepository_DeleteExpiredOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository(memory.WithIdempotencyClock(fixedClock()))

	for key, ttl := range map[string]time.Time{
		"oldest": idemNow.Add(-3 * time.Hour),
		"older":  idemNow.Add(-2 * time.Hour),
		"old":    idemNow.Add(-time.Hour),
		"active": idemNow.Add(time.Hour),
	} {
		_, err := repo.CreateProcessing(ctx, key, "h-"+key, ttl)
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(ctx, idemNow, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = repo.Get(ctx, "oldest")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	_, err = repo.Get(ctx, "older")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
	_, err = repo.Get(ctx, "old")
	assert.NoError(t, err)

	removed, err = repo.DeleteExpired(ctx, time.Time{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "active")
	assert.NoError(t, err)
}
