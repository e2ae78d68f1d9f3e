package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

type zoneRepo struct {
	tx *sql.Tx
}

func (r *zoneRepo) Create(ctx context.Context, z *domain.DeliveryZone) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO delivery_zones (name, tariff, delivery_days, active)
		VALUES (?, ?, ?, ?)`,
		z.Name, z.Tariff.String(), z.DeliveryDays, boolToInt(z.Active),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create delivery zone: %w", err)
	}
	z.ID, err = res.LastInsertId()
	return err
}

func (r *zoneRepo) Get(ctx context.Context, id int64) (*domain.DeliveryZone, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, name, tariff, delivery_days, active
		FROM   delivery_zones WHERE id = ?`, id)
	return scanZone(row)
}

func (r *zoneRepo) ListActive(ctx context.Context) ([]domain.DeliveryZone, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, name, tariff, delivery_days, active
		FROM   delivery_zones WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list delivery zones: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryZone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *z)
	}
	return out, rows.Err()
}

func scanZone(row rowScanner) (*domain.DeliveryZone, error) {
	var z domain.DeliveryZone
	var tariff string
	var active int
	err := row.Scan(&z.ID, &z.Name, &tariff, &z.DeliveryDays, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan delivery zone: %w", err)
	}
	if z.Tariff, err = scanDecimal(tariff); err != nil {
		return nil, err
	}
	z.Active = active == 1
	return &z, nil
}

type couponRepo struct {
	tx *sql.Tx
}

func (r *couponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO coupons (code, kind, value, minimum_order, usage_limit, usage_count, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Code, string(c.Kind), c.Value.String(), c.MinimumOrder.String(),
		c.UsageLimit, c.UsageCount, boolToInt(c.Active),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create coupon: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *couponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, code, kind, value, minimum_order, usage_limit, usage_count, active
		FROM   coupons WHERE code = ?`, code)

	var c domain.Coupon
	var kind, value, minimum string
	var active int
	err := row.Scan(&c.ID, &c.Code, &kind, &value, &minimum, &c.UsageLimit, &c.UsageCount, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan coupon: %w", err)
	}
	c.Kind = domain.DiscountKind(kind)
	if c.Value, err = scanDecimal(value); err != nil {
		return nil, err
	}
	if c.MinimumOrder, err = scanDecimal(minimum); err != nil {
		return nil, err
	}
	c.Active = active == 1
	return &c, nil
}

// IncrementUsage counts one redemption, stopping at the usage limit. Two
// orders priced against the last remaining use can both reach
// confirmation; the guard keeps the counter honest and the later order
// still confirms with the discount it was quoted.
func (r *couponRepo) IncrementUsage(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1
		WHERE  id = ? AND (usage_limit = 0 OR usage_count < usage_limit)`, id)
	if err != nil {
		return fmt.Errorf("sqlite: increment coupon usage %d: %w", id, err)
	}
	return nil
}

type customerRepo struct {
	tx *sql.Tx
}

func (r *customerRepo) Create(ctx context.Context, c *domain.Customer) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO customers (first_name, last_name, email) VALUES (?, ?, ?)`,
		c.FirstName, c.LastName, c.Email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *customerRepo) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email FROM customers WHERE id = ?`, id)

	var c domain.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan customer: %w", err)
	}
	return &c, nil
}
