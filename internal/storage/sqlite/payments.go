package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
)

type paymentRepo struct {
	tx *sql.Tx
}

const paymentCols = `id, order_id, transaction_id, amount, currency, status, callback_payload, paid_at`

func (r *paymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO payments (order_id, transaction_id, amount, currency, status)
		VALUES (?, ?, ?, ?, ?)`,
		p.OrderID, p.TransactionID, p.Amount.String(), p.Currency, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *paymentRepo) GetByOrder(ctx context.Context, orderID int64) (*domain.Payment, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE order_id = ?`, orderID)
	return scanPayment(row)
}

func (r *paymentRepo) GetByTransactionID(ctx context.Context, txID string) (*domain.Payment, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE transaction_id = ?`, txID)
	return scanPayment(row)
}

func (r *paymentRepo) SetStatus(ctx context.Context, id int64, s domain.TransactionStatus, payload []byte) error {
	var paidAt any
	if s == domain.TxApproved {
		paidAt = formatTime(time.Now())
	}

	if payload != nil {
		_, err := r.tx.ExecContext(ctx, `
			UPDATE payments SET status = ?, callback_payload = ?, paid_at = COALESCE(?, paid_at)
			WHERE id = ?`,
			string(s), payload, paidAt, id)
		if err != nil {
			return fmt.Errorf("sqlite: set payment %d status: %w", id, err)
		}
		return nil
	}

	_, err := r.tx.ExecContext(ctx, `
		UPDATE payments SET status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ?`,
		string(s), paidAt, id)
	if err != nil {
		return fmt.Errorf("sqlite: set payment %d status: %w", id, err)
	}
	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var amount, status string
	var paidAt sql.NullString

	err := row.Scan(&p.ID, &p.OrderID, &p.TransactionID, &amount, &p.Currency, &status, &p.CallbackPayload, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan payment: %w", err)
	}

	if p.Amount, err = scanDecimal(amount); err != nil {
		return nil, err
	}
	p.Status = domain.TransactionStatus(status)
	if paidAt.Valid {
		t, err := parseTime(paidAt.String)
		if err != nil {
			return nil, err
		}
		p.PaidAt = &t
	}
	return &p, nil
}

type eventRepo struct {
	tx *sql.Tx
}

// Append writes one audit row. The table is append-only; there is no
// update or delete path anywhere in this package.
func (r *eventRepo) Append(ctx context.Context, e *domain.OrderEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var actorID any
	if e.ActorID != nil {
		actorID = *e.ActorID
	}

	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO order_events (order_id, status, message, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.OrderID, string(e.Status), e.Message, actorID, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append order event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (r *eventRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderEvent, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, order_id, status, message, actor_id, created_at
		FROM   order_events WHERE order_id = ? ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list order events: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderEvent
	for rows.Next() {
		var e domain.OrderEvent
		var status, createdAt string
		var actorID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.OrderID, &status, &e.Message, &actorID, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan order event: %w", err)
		}
		e.Status = domain.Status(status)
		if actorID.Valid {
			e.ActorID = &actorID.Int64
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
