//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-core/internal/domain/discount"
	"github.com/xenking/checkout-core/internal/repository"
)

func seedCoupon(t *testing.T, code string) *discount.Coupon {
	t.Helper()
	repo := repository.NewDiscountRepository(pool)
	c := &discount.Coupon{
		ID:        uuid.New().String(),
		Code:      code,
		Type:      discount.TypePercentage,
		Value:     decimal.NewFromInt(10),
		Scope:     discount.Scope{Kind: discount.ScopeAll},
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTill: time.Now().Add(24 * time.Hour),
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCouponClaim_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDiscountRepository(pool)
	c := seedCoupon(t, "RACE10")

	const attempts = 16
	results := make([]bool, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = repo.ClaimUsage(ctx, c.ID, "user-race")
		}()
	}
	wg.Wait()

	wins := 0
	for i, ok := range results {
		require.NoError(t, errs[i])
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent claim must win")
}

func TestCouponClaim_ReleaseAllowsReclaim(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDiscountRepository(pool)
	c := seedCoupon(t, "REUSE10")

	claimed, err := repo.ClaimUsage(ctx, c.ID, "user-1")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = repo.ClaimUsage(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	// A different user is unaffected.
	claimed, err = repo.ClaimUsage(ctx, c.ID, "user-2")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, repo.ReleaseUsage(ctx, c.ID, "user-1"))

	claimed, err = repo.ClaimUsage(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, claimed, "released usage must be claimable again")
}

func TestCouponEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDiscountRepository(pool)
	engine := discount.NewEngine(repo)
	c := seedCoupon(t, "E2E10")

	applied, err := engine.ValidateAndApply(ctx, c.Code, "e2e-user", discount.OrderContext{
		OrderAmount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.True(t, applied.Amount.Equal(decimal.NewFromInt(20)))

	_, err = engine.ValidateAndApply(ctx, c.Code, "e2e-user", discount.OrderContext{
		OrderAmount: decimal.NewFromInt(200),
	})
	require.ErrorIs(t, err, discount.ErrAlreadyUsed)
}
