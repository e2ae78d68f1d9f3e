package domain

import "github.com/shopspring/decimal"

// StockMode says whether a product's stock counter is authoritative.
// Untracked products sell without ever touching the inventory ledger.
type StockMode string

const (
	StockTracked   StockMode = "tracked"
	StockUntracked StockMode = "untracked"
)

type Product struct {
	ID             int64
	Name           string
	Description    string
	UnitPrice      decimal.Decimal
	StockMode      StockMode
	StockAvailable int
	StockMinimum   int
	Active         bool
}

func (p *Product) Tracked() bool {
	return p.StockMode == StockTracked
}

// LowStock reports whether available stock has reached the reorder threshold.
func (p *Product) LowStock() bool {
	return p.Tracked() && p.StockAvailable <= p.StockMinimum
}

// DeliveryZone carries a flat tariff. The tariff is snapshotted into the
// order at creation, so deactivating or re-pricing a zone never rewrites
// order history.
type DeliveryZone struct {
	ID           int64
	Name         string
	Tariff       decimal.Decimal
	DeliveryDays int
	Active       bool
}

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed_amount"
)

type Coupon struct {
	ID           int64
	Code         string
	Kind         DiscountKind
	Value        decimal.Decimal
	MinimumOrder decimal.Decimal
	UsageLimit   int // 0 means unlimited
	UsageCount   int
	Active       bool
}

// Exhausted reports whether the coupon hit its redemption limit.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}
