package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-prodplan/internal/planning"
)

// OrderIntake implements planning.WorkIntake over the order_backlog table.
// An item is a candidate when no task references it yet, so retrying an
// unscheduled item in a later plan happens naturally.
type OrderIntake struct {
	pool *pgxpool.Pool
}

// NewOrderIntake builds a work intake reading the order backlog.
func NewOrderIntake(pool *pgxpool.Pool) *OrderIntake {
	return &OrderIntake{pool: pool}
}

// PendingItems returns backlog items ordered before the target date that
// have not been planned yet, oldest first.
func (in *OrderIntake) PendingItems(ctx context.Context, targetDate time.Time) ([]planning.Candidate, error) {
	rows, err := in.pool.Query(ctx, `
		SELECT b.order_id, b.order_item_id, b.operation, b.quantity,
		       b.ordered_at, b.prepaid, b.order_value, b.rush
		FROM order_backlog b
		WHERE b.ordered_at < $1
		  AND NOT EXISTS (
		      SELECT 1 FROM tasks t
		      WHERE t.order_item_id = b.order_item_id
		  )
		ORDER BY b.ordered_at
	`, targetDate)
	if err != nil {
		return nil, fmt.Errorf("query order backlog: %w", err)
	}
	defer rows.Close()

	var items []planning.Candidate
	for rows.Next() {
		var c planning.Candidate
		if err := rows.Scan(
			&c.OrderID, &c.OrderItemID, &c.Operation, &c.Quantity,
			&c.OrderedAt, &c.Prepaid, &c.OrderValue, &c.Rush,
		); err != nil {
			return nil, fmt.Errorf("scan backlog item: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
