//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/discount"
	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/repository"
)

func TestOrderCreate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	catalogRepo := repository.NewCatalogRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)

	productID := seedProduct(t, decimal.RequireFromString("19.99"))
	c := seedCoupon(t, "ORDER10")

	svc := order.NewService(catalogRepo,
		discount.NewEngine(discountRepo), orderRepo, decimal.RequireFromString("0.01"))

	o, err := svc.Create(ctx, auth.Principal{ID: "buyer-rt", Role: auth.RoleBuyer}, order.CreateRequest{
		SellerID:   "seller-1",
		CouponCode: c.Code,
		Items: []order.ItemRequest{
			{ProductID: productID, Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		},
	})
	require.NoError(t, err)

	got, err := orderRepo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("39.98")))
	assert.True(t, got.Discount.Equal(decimal.RequireFromString("4.00")))
	assert.True(t, got.Total.Equal(got.Subtotal.Sub(got.Discount)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestOrderTransition_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(pool)
	orderID := seedOrder(t, "buyer-1", decimal.NewFromInt(50), "pending")

	// Confirm and cancel race from the same pending snapshot; the database
	// predicate lets exactly one through.
	const racers = 10
	results := make([]bool, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := order.StatusConfirmed
			if i%2 == 1 {
				target = order.StatusCancelled
			}
			results[i], errs[i] = repo.UpdateStatus(ctx, orderID, order.StatusPending, target)
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
	assert.Equal(t, 1, wins)

	got, err := repo.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Contains(t, []order.Status{order.StatusConfirmed, order.StatusCancelled}, got.Status)
}

func TestOrderDeleteCascade(t *testing.T) {
	ctx := context.Background()
	orderRepo := repository.NewOrderRepository(pool)
	orderID := seedOrder(t, "buyer-1", decimal.NewFromInt(75), "cancelled")
	p := seedPayment(t, orderID, decimal.NewFromInt(75))

	_, err := pool.Exec(ctx,
		`INSERT INTO shippings (id, order_id, address_id, status) VALUES ($1, $2, 'addr-1', 'processing')`,
		"ship-"+orderID[:8], orderID)
	require.NoError(t, err)

	require.NoError(t, orderRepo.DeleteCascade(ctx, orderID))

	_, err = orderRepo.GetByID(ctx, orderID)
	require.ErrorIs(t, err, order.ErrNotFound)

	var paymentCount, shippingCount int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM payments WHERE id = $1`, p.ID).Scan(&paymentCount))
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM shippings WHERE order_id = $1`, orderID).Scan(&shippingCount))
	assert.Zero(t, paymentCount)
	assert.Zero(t, shippingCount)
}
