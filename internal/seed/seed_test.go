package seed_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/seed"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "seed-test")
}

func TestRun_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := catalog.NewService(store, catalog.WithLogger(quietLogger()))

	res, err := seed.Run(ctx, store, svc, quietLogger())
	require.NoError(t, err)
	require.Equal(t, seed.Result{Customers: 4, Products: 8}, res)

	products, err := svc.SearchProducts(ctx, "ceviche")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.True(t, products[0].Price.Equal(decimal.RequireFromString("25")))
	require.Equal(t, 50, products[0].Stock)

	again, err := seed.Run(ctx, store, svc, quietLogger())
	require.NoError(t, err)
	require.Zero(t, again.Customers)
	require.Zero(t, again.Products)
}

func TestRun_SeedsOnlyEmptyStores(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Customers().Create(ctx, domain.Customer{ID: "c1", FirstName: "Rosa", Active: true}))
	svc := catalog.NewService(store, catalog.WithLogger(quietLogger()))

	res, err := seed.Run(ctx, store, svc, quietLogger())
	require.NoError(t, err)
	require.Zero(t, res.Customers)
	require.Equal(t, 8, res.Products)

	count, err := store.Customers().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
