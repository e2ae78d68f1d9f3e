package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProduct(t *testing.T, store *Store, p *domain.Product) int64 {
	t.Helper()
	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		return tx.Products().Create(ctx, p)
	}))
	return p.ID
}

func TestDecrementStockGuard(t *testing.T) {
	store := openStore(t)
	id := seedProduct(t, store, &domain.Product{
		Name:           "Cajou caramel 200g",
		UnitPrice:      decimal.RequireFromString("1500"),
		StockMode:      domain.StockTracked,
		StockAvailable: 3,
		Active:         true,
	})

	err := store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Products().DecrementStock(ctx, id, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, p.StockAvailable)

		// Next decrement would go negative; the row must be left alone.
		_, err = tx.Products().DecrementStock(ctx, id, 2)
		assert.ErrorIs(t, err, ports.ErrInsufficientStock)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Products().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, p.StockAvailable)
		return nil
	}))
}

func TestDecrementStockUntracked(t *testing.T) {
	store := openStore(t)
	id := seedProduct(t, store, &domain.Product{
		Name:      "Cajou en vrac",
		UnitPrice: decimal.RequireFromString("800"),
		StockMode: domain.StockUntracked,
		Active:    true,
	})

	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Products().DecrementStock(ctx, id, 1000)
		require.NoError(t, err)
		assert.Equal(t, 0, p.StockAvailable)
		return tx.Products().IncrementStock(ctx, id, 1000)
	}))

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		p, err := tx.Products().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, p.StockAvailable, "untracked stock never moves")
		return nil
	}))
}

func TestCartUpsertAndMerge(t *testing.T) {
	store := openStore(t)
	id := seedProduct(t, store, &domain.Product{
		Name:      "Cajou épicé 100g",
		UnitPrice: decimal.RequireFromString("600"),
		StockMode: domain.StockUntracked,
		Active:    true,
	})

	var userID int64
	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		c := &domain.Customer{FirstName: "Koffi", LastName: "A.", Email: "koffi@example.com"}
		if err := tx.Customers().Create(ctx, c); err != nil {
			return err
		}
		userID = c.ID

		// Same line twice: quantities accumulate.
		if err := tx.Carts().Upsert(ctx, domain.SessionOwner("s1"), id, 2); err != nil {
			return err
		}
		if err := tx.Carts().Upsert(ctx, domain.SessionOwner("s1"), id, 3); err != nil {
			return err
		}
		// The user already has one of the same product.
		return tx.Carts().Upsert(ctx, domain.UserOwner(userID), id, 1)
	}))

	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		return tx.Carts().MergeSession(ctx, "s1", userID)
	}))

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		userLines, err := tx.Carts().ListByOwner(ctx, domain.UserOwner(userID))
		require.NoError(t, err)
		require.Len(t, userLines, 1)
		assert.Equal(t, 6, userLines[0].Quantity)

		sessionLines, err := tx.Carts().ListByOwner(ctx, domain.SessionOwner("s1"))
		require.NoError(t, err)
		assert.Empty(t, sessionLines)
		return nil
	}))
}

func TestMarkConfirmedIsSingleShot(t *testing.T) {
	store := openStore(t)

	var orderID int64
	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		c := &domain.Customer{FirstName: "Awa", LastName: "D.", Email: "awa@example.com"}
		if err := tx.Customers().Create(ctx, c); err != nil {
			return err
		}
		z := &domain.DeliveryZone{Name: "Porto-Novo", Tariff: decimal.RequireFromString("700"), Active: true}
		if err := tx.Zones().Create(ctx, z); err != nil {
			return err
		}
		a := &domain.Address{UserID: c.ID, RecipientName: "Awa", RecipientPhone: "+229", ZoneID: z.ID, Details: "x"}
		if err := tx.Addresses().Create(ctx, a); err != nil {
			return err
		}
		o := &domain.Order{
			Number:        domain.NewOrderNumber(),
			UserID:        c.ID,
			AddressID:     a.ID,
			Status:        domain.StatusPending,
			PaymentStatus: domain.PaymentPending,
			Subtotal:      decimal.RequireFromString("1000"),
			DeliveryFee:   decimal.RequireFromString("700"),
			Discount:      decimal.Zero,
			Total:         decimal.RequireFromString("1700"),
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	}))

	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		won, err := tx.Orders().MarkConfirmed(ctx, orderID)
		require.NoError(t, err)
		assert.True(t, won)

		won, err = tx.Orders().MarkConfirmed(ctx, orderID)
		require.NoError(t, err)
		assert.False(t, won, "second confirmation must lose the swap")
		return nil
	}))

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, o.Status)
		assert.Equal(t, domain.PaymentApproved, o.PaymentStatus)
		return nil
	}))
}

func TestIncrementUsageStopsAtLimit(t *testing.T) {
	store := openStore(t)

	var limited, unlimited int64
	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		l := &domain.Coupon{
			Code: "DERNIER", Kind: domain.DiscountFixed,
			Value: decimal.RequireFromString("500"), MinimumOrder: decimal.Zero,
			UsageLimit: 1, Active: true,
		}
		if err := tx.Coupons().Create(ctx, l); err != nil {
			return err
		}
		limited = l.ID

		u := &domain.Coupon{
			Code: "TOUJOURS", Kind: domain.DiscountFixed,
			Value: decimal.RequireFromString("100"), MinimumOrder: decimal.Zero,
			Active: true,
		}
		if err := tx.Coupons().Create(ctx, u); err != nil {
			return err
		}
		unlimited = u.ID
		return nil
	}))

	require.NoError(t, store.WithinTx(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		for range 3 {
			if err := tx.Coupons().IncrementUsage(ctx, limited); err != nil {
				return err
			}
			if err := tx.Coupons().IncrementUsage(ctx, unlimited); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		l, err := tx.Coupons().GetByCode(ctx, "DERNIER")
		require.NoError(t, err)
		assert.Equal(t, 1, l.UsageCount, "counter must not pass the limit")

		u, err := tx.Coupons().GetByCode(ctx, "TOUJOURS")
		require.NoError(t, err)
		assert.Equal(t, 3, u.UsageCount, "zero limit means unlimited")
		return nil
	}))
}

func TestGetMissingRowsReturnNotFound(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.View(t.Context(), func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Products().Get(ctx, 42)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = tx.Orders().Get(ctx, 42)
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = tx.Coupons().GetByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, ports.ErrNotFound)
		_, err = tx.Payments().GetByTransactionID(ctx, "77")
		assert.ErrorIs(t, err, ports.ErrNotFound)
		return nil
	}))
}
