package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luxecajou/api/internal/checkout/domain"
)

type cartRepo struct {
	tx *sql.Tx
}

// ownerClause returns the WHERE fragment and argument selecting one cart
// owner. CartOwner.Validate guarantees exactly one side is set.
func ownerClause(owner domain.CartOwner) (string, any) {
	if owner.Anonymous() {
		return "session_id = ?", owner.SessionID
	}
	return "user_id = ?", owner.UserID
}

func (r *cartRepo) ListByOwner(ctx context.Context, owner domain.CartOwner) ([]domain.CartLine, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	clause, arg := ownerClause(owner)

	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, 0), COALESCE(session_id, ''), product_id, quantity
		FROM   cart_lines WHERE `+clause+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cart lines: %w", err)
	}
	defer rows.Close()

	var out []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.Owner.UserID, &l.Owner.SessionID, &l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan cart line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *cartRepo) Upsert(ctx context.Context, owner domain.CartOwner, productID int64, qty int) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	var userID, sessionID any
	if owner.Anonymous() {
		sessionID = owner.SessionID
	} else {
		userID = owner.UserID
	}

	// The partial unique indexes on (owner, product) make this an
	// add-to-quantity upsert. SQLite only matches a partial index when the
	// conflict target repeats its WHERE predicate.
	conflict := "(user_id, product_id) WHERE user_id IS NOT NULL"
	if owner.Anonymous() {
		conflict = "(session_id, product_id) WHERE session_id IS NOT NULL"
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO cart_lines (user_id, session_id, product_id, quantity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT `+conflict+` DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, sessionID, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert cart line: %w", err)
	}
	return nil
}

func (r *cartRepo) SetQuantity(ctx context.Context, owner domain.CartOwner, productID int64, qty int) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	clause, arg := ownerClause(owner)

	if qty <= 0 {
		_, err := r.tx.ExecContext(ctx,
			`DELETE FROM cart_lines WHERE `+clause+` AND product_id = ?`, arg, productID)
		if err != nil {
			return fmt.Errorf("sqlite: delete cart line: %w", err)
		}
		return nil
	}

	_, err := r.tx.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = ? WHERE `+clause+` AND product_id = ?`, qty, arg, productID)
	if err != nil {
		return fmt.Errorf("sqlite: set cart quantity: %w", err)
	}
	return nil
}

func (r *cartRepo) DeleteByOwner(ctx context.Context, owner domain.CartOwner) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	clause, arg := ownerClause(owner)

	_, err := r.tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE `+clause, arg)
	if err != nil {
		return fmt.Errorf("sqlite: clear cart: %w", err)
	}
	return nil
}

// MergeSession folds an anonymous cart into the user's cart when they log
// in, summing quantities where both carts hold the same product.
func (r *cartRepo) MergeSession(ctx context.Context, sessionID string, userID int64) error {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT product_id, quantity FROM cart_lines WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("sqlite: read session cart: %w", err)
	}
	type line struct {
		productID int64
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scan session cart line: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		if err := r.Upsert(ctx, domain.UserOwner(userID), l.productID, l.qty); err != nil {
			return err
		}
	}

	_, err = r.tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("sqlite: drop session cart: %w", err)
	}
	return nil
}
