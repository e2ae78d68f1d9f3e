package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

type addressRepo struct {
	tx *sql.Tx
}

func (r *addressRepo) Create(ctx context.Context, a *domain.Address) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO addresses (user_id, recipient_name, recipient_phone, zone_id, city, district, details, landmark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.RecipientName, a.RecipientPhone, a.ZoneID, a.City, a.District, a.Details, a.Landmark,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create address: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

type orderRepo struct {
	tx *sql.Tx
}

const orderCols = `id, number, user_id, address_id, status, payment_status,
	subtotal, delivery_fee, discount, total, coupon_id, customer_notes, created_at`

func (r *orderRepo) Create(ctx context.Context, o *domain.Order) error {
	var couponID any
	if o.CouponID != nil {
		couponID = *o.CouponID
	}

	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO orders (number, user_id, address_id, status, payment_status,
			subtotal, delivery_fee, discount, total, coupon_id, customer_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Number, o.UserID, o.AddressID, string(o.Status), string(o.PaymentStatus),
		o.Subtotal.String(), o.DeliveryFee.String(), o.Discount.String(), o.Total.String(),
		couponID, o.CustomerNotes, formatTime(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		l.OrderID = o.ID
		lineRes, err := r.tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?)`,
			l.OrderID, l.ProductID, l.Quantity, l.UnitPrice.String(), l.Subtotal.String(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: create order line: %w", err)
		}
		if l.ID, err = lineRes.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.tx.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = ? AND user_id = ?`, id, userID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns orders newest first, optionally filtered by status. Line
// items are not loaded; listings only need the order headers.
func (r *orderRepo) List(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// MarkConfirmed is the idempotence guard of payment confirmation: the
// UPDATE only matches while payment_status is still pending, so of two
// racing confirmations exactly one sees a row affected.
func (r *orderRepo) MarkConfirmed(ctx context.Context, id int64) (bool, error) {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE orders
		SET    status = ?, payment_status = ?
		WHERE  id = ? AND payment_status = ?`,
		string(domain.StatusConfirmed), string(domain.PaymentApproved),
		id, string(domain.PaymentPending),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: confirm order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *orderRepo) SetStatus(ctx context.Context, id int64, s domain.Status) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, string(s), id)
	if err != nil {
		return fmt.Errorf("sqlite: set order %d status: %w", id, err)
	}
	return nil
}

func (r *orderRepo) SetPaymentStatus(ctx context.Context, id int64, ps domain.PaymentStatus) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = ? WHERE id = ?`, string(ps), id)
	if err != nil {
		return fmt.Errorf("sqlite: set order %d payment status: %w", id, err)
	}
	return nil
}

func (r *orderRepo) lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, subtotal
		FROM   order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list order lines: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		var price, subtotal string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("sqlite: scan order line: %w", err)
		}
		if l.UnitPrice, err = scanDecimal(price); err != nil {
			return nil, err
		}
		if l.Subtotal, err = scanDecimal(subtotal); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var status, paymentStatus, subtotal, fee, discount, total, createdAt string
	var couponID sql.NullInt64

	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.AddressID, &status, &paymentStatus,
		&subtotal, &fee, &discount, &total, &couponID, &o.CustomerNotes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}

	o.Status = domain.Status(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if o.Subtotal, err = scanDecimal(subtotal); err != nil {
		return nil, err
	}
	if o.DeliveryFee, err = scanDecimal(fee); err != nil {
		return nil, err
	}
	if o.Discount, err = scanDecimal(discount); err != nil {
		return nil, err
	}
	if o.Total, err = scanDecimal(total); err != nil {
		return nil, err
	}
	if couponID.Valid {
		o.CouponID = &couponID.Int64
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &o, nil
}
