// Package pricing computes order totals from a cart snapshot. It is a pure
// function over in-memory values: callers load products, the delivery zone
// and the optional coupon inside their own transaction and pass them in.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/luxecajou/api/internal/checkout/domain"
)

var (
	ErrInvalidDeliveryZone = errors.New("delivery zone is missing or inactive")
	ErrCouponMinimumNotMet = errors.New("order subtotal is below the coupon minimum")
	ErrCouponExhausted     = errors.New("coupon usage limit reached")
	ErrInvalidCoupon       = errors.New("coupon discount value is invalid")
)

// InsufficientStockError names the product so the storefront can tell the
// customer which line to fix.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q", e.ProductName)
}

// Line is one cart line joined with its product as read inside the
// checkout transaction.
type Line struct {
	Product  domain.Product
	Quantity int
}

type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals prices a cart against a delivery zone and an optional
// coupon. All arithmetic is exact decimal; the final total is floored at
// zero but the discount itself is reported undamped.
func ComputeTotals(lines []Line, zone *domain.DeliveryZone, coupon *domain.Coupon) (Quote, error) {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Product.Tracked() && l.Quantity > l.Product.StockAvailable {
			return Quote{}, &InsufficientStockError{ProductName: l.Product.Name}
		}
		subtotal = subtotal.Add(l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	if zone == nil || !zone.Active {
		return Quote{}, ErrInvalidDeliveryZone
	}
	fee := zone.Tariff

	discount := decimal.Zero
	if coupon != nil && coupon.Active {
		if coupon.Exhausted() {
			return Quote{}, ErrCouponExhausted
		}
		if coupon.MinimumOrder.IsPositive() && subtotal.LessThan(coupon.MinimumOrder) {
			return Quote{}, ErrCouponMinimumNotMet
		}
		switch coupon.Kind {
		case domain.DiscountPercentage:
			if coupon.Value.IsNegative() || coupon.Value.GreaterThan(hundred) {
				return Quote{}, ErrInvalidCoupon
			}
			discount = subtotal.Mul(coupon.Value).Div(hundred)
		case domain.DiscountFixed:
			discount = coupon.Value
		default:
			return Quote{}, ErrInvalidCoupon
		}
	}

	total := subtotal.Sub(discount).Add(fee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       total,
	}, nil
}
