//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-core/internal/domain/inventory"
	"github.com/xenking/checkout-core/internal/repository"
)

func seedInventory(t *testing.T, quantity int) *inventory.Inventory {
	t.Helper()
	repo := repository.NewInventoryRepository(pool)
	inv := &inventory.Inventory{
		ID:        uuid.New().String(),
		VariantID: uuid.New().String(),
		SellerID:  "seller-1",
		Quantity:  quantity,
	}
	require.NoError(t, repo.Create(context.Background(), inv))
	return inv
}

func TestInventoryAdjust_NeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInventoryRepository(pool)
	inv := seedInventory(t, 5)

	got, err := repo.Adjust(ctx, inv.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = repo.Adjust(ctx, inv.ID, -3)
	require.ErrorIs(t, err, inventory.ErrNegativeStock)

	got, err = repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity, "rejected delta must leave the row unchanged")
}

func TestInventoryAdjust_ConcurrentDecrements(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInventoryRepository(pool)
	inv := seedInventory(t, 10)

	// 20 concurrent decrements of 1 against a stock of 10: exactly 10 must
	// succeed and the quantity must land on zero, never below.
	const workers = 20
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.Adjust(ctx, inv.ID, -1)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, inventory.ErrNegativeStock)
		}
	}
	assert.Equal(t, 10, succeeded)

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}

func TestInventoryCreate_DuplicatePair(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInventoryRepository(pool)
	inv := seedInventory(t, 5)

	err := repo.Create(ctx, &inventory.Inventory{
		ID:        uuid.New().String(),
		VariantID: inv.VariantID,
		SellerID:  inv.SellerID,
		Quantity:  1,
	})
	var dup *inventory.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestInventoryListLowStock(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInventoryRepository(pool)
	low := seedInventory(t, 2)
	seedInventory(t, 50)

	rows, err := repo.ListLowStock(ctx, 5)
	require.NoError(t, err)

	found := false
	for _, r := range rows {
		assert.LessOrEqual(t, r.Quantity, 5)
		if r.ID == low.ID {
			found = true
		}
	}
	assert.True(t, found, "low stock row must be listed")
}
