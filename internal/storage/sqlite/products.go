package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

type productRepo struct {
	tx *sql.Tx
}

const productCols = `id, name, description, unit_price, stock_mode, stock_available, stock_minimum, active`

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO products (name, description, unit_price, stock_mode, stock_available, stock_minimum, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.UnitPrice.String(), string(p.StockMode),
		p.StockAvailable, p.StockMinimum, boolToInt(p.Active),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create product: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *productRepo) Get(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (r *productRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT `+productCols+` FROM products WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DecrementStock is the guarded stock reservation. The WHERE clause is the
// compare-and-swap: zero rows affected on a tracked product means there was
// not enough stock, and the transaction the caller runs in will roll back.
func (r *productRepo) DecrementStock(ctx context.Context, id int64, qty int) (*domain.Product, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Tracked() {
		return p, nil
	}

	res, err := r.tx.ExecContext(ctx, `
		UPDATE products
		SET    stock_available = stock_available - ?
		WHERE  id = ? AND stock_mode = 'tracked' AND stock_available >= ?`,
		qty, id, qty,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: decrement stock for product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ports.ErrInsufficientStock
	}

	p.StockAvailable -= qty
	return p, nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id int64, qty int) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE products
		SET    stock_available = stock_available + ?
		WHERE  id = ? AND stock_mode = 'tracked'`,
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: increment stock for product %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var price, mode string
	var active int
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &mode, &p.StockAvailable, &p.StockMinimum, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan product: %w", err)
	}
	if p.UnitPrice, err = scanDecimal(price); err != nil {
		return nil, err
	}
	p.StockMode = domain.StockMode(mode)
	p.Active = active == 1
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
