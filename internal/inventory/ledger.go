// Package inventory applies stock movements inside a checkout transaction.
// Reservation and restoration are the only two ways product stock changes;
// each runs exactly once per order lifecycle event because the caller
// drives them from a compare-and-swap guarded confirmation or cancellation.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

// InsufficientStockError reports which product could not be reserved.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// Ledger wraps the product repository of the enclosing transaction.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements available stock for a tracked product and reports
// whether this decrement crossed the low-stock threshold (so the caller
// can signal it once, after commit). Untracked products are a no-op.
func (l *Ledger) Reserve(ctx context.Context, tx ports.Tx, productID int64, qty int) (*domain.Product, bool, error) {
	p, err := tx.Products().DecrementStock(ctx, productID, qty)
	if errors.Is(err, ports.ErrInsufficientStock) {
		return nil, false, &InsufficientStockError{ProductID: productID}
	}
	if err != nil {
		return nil, false, fmt.Errorf("reserve product %d: %w", productID, err)
	}
	if !p.Tracked() {
		return p, false, nil
	}

	// Crossed means the threshold was passed by this very decrement, not
	// merely sat below it already.
	crossed := p.StockAvailable <= p.StockMinimum && p.StockAvailable+qty > p.StockMinimum
	return p, crossed, nil
}

// Restore gives reserved stock back, e.g. when a confirmed order is
// cancelled. Untracked products are a no-op.
func (l *Ledger) Restore(ctx context.Context, tx ports.Tx, productID int64, qty int) error {
	if err := tx.Products().IncrementStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("restore product %d: %w", productID, err)
	}
	return nil
}
