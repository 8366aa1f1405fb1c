// ABOUTME: Order persistence with atomic stock decrement
// ABOUTME: Order lines join agent, product and store names for reporting

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlaceOrder inserts the order and decrements the product's stock in a single
// transaction. Stock never goes below zero and untracked stock stays untracked.
func (s *SQLStore) PlaceOrder(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO orders (id, agent_id, product_id, store_id, quantity, unit_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`),
		order.ID,
		order.AgentID,
		order.ProductID,
		order.StoreID,
		order.Quantity,
		order.UnitPrice,
		formatTime(order.CreatedAt),
	)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	result, err := tx.ExecContext(ctx, s.dialect.rebind(`
		UPDATE products
		SET stock = CASE
			WHEN stock IS NULL THEN NULL
			WHEN stock > ? THEN stock - ?
			ELSE 0
		END
		WHERE id = ?
	`), order.Quantity, order.Quantity, order.ProductID)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}

	s.logger.Info("placed order",
		"id", order.ID,
		"agent_id", order.AgentID,
		"product_id", order.ProductID,
		"quantity", order.Quantity,
	)
	return nil
}

// ListOrderLines returns orders joined with display names, newest first.
// Names of rows that no longer resolve come back empty.
func (s *SQLStore) ListOrderLines(ctx context.Context, filter OrderFilter) ([]*OrderLine, error) {
	query := `
		SELECT o.id, o.agent_id, o.product_id, o.store_id, o.quantity, o.unit_price, o.created_at,
			COALESCE(u.name, ''), COALESCE(p.name, ''), COALESCE(st.name, '')
		FROM orders o
		LEFT JOIN users u ON u.id = o.agent_id
		LEFT JOIN products p ON p.id = o.product_id
		LEFT JOIN stores st ON st.id = o.store_id
		WHERE 1=1`
	args := []any{}

	if filter.AgentID != "" {
		query += " AND o.agent_id = ?"
		args = append(args, filter.AgentID)
	}
	query += " ORDER BY o.created_at DESC, o.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lines := []*OrderLine{}
	for rows.Next() {
		line, err := scanOrderLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return lines, nil
}

func scanOrderLine(rows *sql.Rows) (*OrderLine, error) {
	var l OrderLine
	err := rows.Scan(
		&l.ID,
		&l.AgentID,
		&l.ProductID,
		&l.StoreID,
		&l.Quantity,
		&l.UnitPrice,
		scanTime(&l.CreatedAt),
		&l.AgentName,
		&l.ProductName,
		&l.StoreName,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	return &l, nil
}
