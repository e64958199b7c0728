package inventory

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
)

// bulkConcurrency caps parallel adjustments in a bulk request.
const bulkConcurrency = 8

// Service wraps the ledger with role checks and the bulk operation.
type Service struct {
	repo Repository
}

// NewService creates the ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new (variant, seller) stock row. Sellers may only
// create rows for themselves.
func (s *Service) Create(ctx context.Context, principal auth.Principal, variantID, sellerID string, quantity int) (*Inventory, error) {
	if variantID == "" || sellerID == "" {
		return nil, apperr.New(apperr.KindValidation, "variant and seller are required")
	}
	if quantity < 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must not be negative")
	}
	if principal.Role == auth.RoleSeller && principal.ID != sellerID {
		return nil, apperr.New(apperr.KindForbidden, "sellers can only manage their own inventory")
	}

	inv := &Inventory{
		ID:        uuid.New().String(),
		VariantID: variantID,
		SellerID:  sellerID,
		Quantity:  quantity,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Adjust applies a signed delta to one row. The rejection of a would-be
// negative result happens inside a single conditional datastore update.
func (s *Service) Adjust(ctx context.Context, id string, delta int) (*Inventory, error) {
	return s.repo.Adjust(ctx, id, delta)
}

// BulkAdjust applies each adjustment independently and reports a per-entry
// outcome list. Partial application is expected behavior, not an error: a
// failed entry does not roll back its siblings.
func (s *Service) BulkAdjust(ctx context.Context, adjustments []Adjustment) []Outcome {
	outcomes := make([]Outcome, len(adjustments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i, adj := range adjustments {
		g.Go(func() error {
			inv, err := s.repo.Adjust(ctx, adj.InventoryID, adj.Delta)
			if err != nil {
				outcomes[i] = Outcome{InventoryID: adj.InventoryID, Err: err}
				return nil
			}
			outcomes[i] = Outcome{InventoryID: adj.InventoryID, Quantity: inv.Quantity}
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()

	return outcomes
}

// Get fetches one stock row.
func (s *Service) Get(ctx context.Context, id string) (*Inventory, error) {
	return s.repo.GetByID(ctx, id)
}

// ListBySeller returns all rows owned by a seller.
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Inventory, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

// ListLowStock returns rows at or below threshold, lowest first.
func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]Inventory, error) {
	if threshold <= 0 {
		threshold = 5
	}
	return s.repo.ListLowStock(ctx, threshold)
}
