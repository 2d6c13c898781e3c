package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/pkg/order"
	"orderflow/pkg/order/gatewaytest"
)

func openMemory(t *testing.T) order.Gateway {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGateway(t *testing.T) {
	gatewaytest.Run(t, openMemory)
}

func TestOpenFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orders.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	svc := order.NewService(store)
	o, err := svc.CreateOrder(ctx, "Persisted")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, o.ID, "Lamp", 1, decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, found, err := order.NewService(store).FindOrderByID(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Persisted", got.CustomerName)
	assert.Equal(t, "19.99", got.Total.StringFixed(2))
	require.Len(t, got.Items, 1)
}

func TestConcurrentAddItemKeepsTotal(t *testing.T) {
	ctx := context.Background()
	svc := order.NewService(openMemory(t))

	o, err := svc.CreateOrder(ctx, "Busy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, o.ID, "Bolt", 3, decimal.RequireFromString("0.35"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _, err := svc.FindOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 20)
	assert.Equal(t, "21.00", got.Total.StringFixed(2))
}
