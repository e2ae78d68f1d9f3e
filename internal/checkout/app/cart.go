package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

var ErrProductUnavailable = errors.New("product not found or inactive")

// CartService covers the cart lifecycle around checkout: add/update lines,
// list the cart joined with product data, and merge an anonymous session
// cart into a user cart on login.
type CartService struct {
	store ports.Store
}

func NewCartService(store ports.Store) *CartService {
	return &CartService{store: store}
}

// CartItem is a cart line joined with its product for display.
type CartItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

func (c *CartService) Items(ctx context.Context, owner domain.CartOwner) ([]CartItem, error) {
	var items []CartItem
	err := c.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		lines, err := tx.Carts().ListByOwner(ctx, owner)
		if err != nil {
			return err
		}
		for _, line := range lines {
			p, err := tx.Products().Get(ctx, line.ProductID)
			if err != nil {
				return err
			}
			items = append(items, CartItem{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.UnitPrice,
				Quantity:  line.Quantity,
				Subtotal:  p.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		return nil
	})
	return items, err
}

// Add puts qty of a product into the cart, incrementing an existing line.
// Inactive and unknown products are rejected the same way so the cart can
// never hold something the catalog no longer sells.
func (c *CartService) Add(ctx context.Context, owner domain.CartOwner, productID int64, qty int) (string, error) {
	var name string
	err := c.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Products().Get(ctx, productID)
		if errors.Is(err, ports.ErrNotFound) {
			return ErrProductUnavailable
		}
		if err != nil {
			return err
		}
		if !p.Active {
			return ErrProductUnavailable
		}
		name = p.Name
		return tx.Carts().Upsert(ctx, owner, productID, qty)
	})
	return name, err
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (c *CartService) SetQuantity(ctx context.Context, owner domain.CartOwner, productID int64, qty int) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Carts().SetQuantity(ctx, owner, productID, qty)
	})
}

// Merge folds the anonymous session cart into the authenticated user's
// cart, summing quantities on shared products.
func (c *CartService) Merge(ctx context.Context, sessionID string, userID int64) error {
	return c.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		return tx.Carts().MergeSession(ctx, sessionID, userID)
	})
}
