// ABOUTME: Product and outlet (retail store) persistence
// ABOUTME: Deleting rows still referenced by orders is reported as ErrInUse

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const productColumns = `id, name, description, price, stock, created_at`

// CreateProduct inserts a new product. ID and CreatedAt are filled in when empty.
func (s *SQLStore) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx, `
		INSERT INTO products (id, name, description, price, stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.Name,
		nullString(p.Description),
		p.Price,
		nullIntPtr(p.Stock),
		formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	s.logger.Info("created product", "id", p.ID, "name", p.Name)
	return nil
}

// GetProduct retrieves a product by ID.
func (s *SQLStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := s.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// ListProducts returns all products ordered by name.
func (s *SQLStore) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := s.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// UpdateProduct overwrites the mutable fields of an existing product.
func (s *SQLStore) UpdateProduct(ctx context.Context, p *Product) error {
	result, err := s.exec(ctx, `
		UPDATE products SET name = ?, description = ?, price = ?, stock = ?
		WHERE id = ?
	`,
		p.Name,
		nullString(p.Description),
		p.Price,
		nullIntPtr(p.Stock),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return requireAffected(result)
}

// DeleteProduct removes a product that no order references.
func (s *SQLStore) DeleteProduct(ctx context.Context, id string) error {
	if err := s.deleteByID(ctx, "products", id); err != nil {
		return err
	}
	s.logger.Info("deleted product", "id", id)
	return nil
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var description sql.NullString
	var stock sql.NullInt64

	err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &stock, scanTime(&p.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	p.Description = description.String
	if stock.Valid {
		n := int(stock.Int64)
		p.Stock = &n
	}
	return &p, nil
}

const outletColumns = `id, name, phone, address, location, agent_id, created_at`

// CreateOutlet inserts a new store. ID and CreatedAt are filled in when empty.
func (s *SQLStore) CreateOutlet(ctx context.Context, o *Outlet) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	_, err := s.exec(ctx, `
		INSERT INTO stores (id, name, phone, address, location, agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID,
		o.Name,
		nullString(o.Phone),
		nullString(o.Address),
		nullJSON(o.Location),
		nullStringPtr(o.AgentID),
		formatTime(o.CreatedAt),
	)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting store: %w", err)
	}

	s.logger.Info("created store", "id", o.ID, "name", o.Name)
	return nil
}

// GetOutlet retrieves a store by ID.
func (s *SQLStore) GetOutlet(ctx context.Context, id string) (*Outlet, error) {
	row := s.queryRow(ctx, `SELECT `+outletColumns+` FROM stores WHERE id = ?`, id)
	return scanOutlet(row)
}

// ListOutlets returns stores matching the filter, newest first.
func (s *SQLStore) ListOutlets(ctx context.Context, filter OutletFilter) ([]*Outlet, error) {
	query := `SELECT ` + outletColumns + ` FROM stores WHERE 1=1`
	args := []any{}

	if filter.AgentID != "" {
		if filter.IncludeUnassigned {
			query += " AND (agent_id = ? OR agent_id IS NULL)"
		} else {
			query += " AND agent_id = ?"
		}
		args = append(args, filter.AgentID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	outlets := []*Outlet{}
	for rows.Next() {
		o, err := scanOutlet(rows)
		if err != nil {
			return nil, err
		}
		outlets = append(outlets, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stores: %w", err)
	}
	return outlets, nil
}

// UpdateOutlet overwrites the mutable fields of an existing store, including
// its agent assignment.
func (s *SQLStore) UpdateOutlet(ctx context.Context, o *Outlet) error {
	result, err := s.exec(ctx, `
		UPDATE stores SET name = ?, phone = ?, address = ?, location = ?, agent_id = ?
		WHERE id = ?
	`,
		o.Name,
		nullString(o.Phone),
		nullString(o.Address),
		nullJSON(o.Location),
		nullStringPtr(o.AgentID),
		o.ID,
	)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("updating store: %w", err)
	}
	return requireAffected(result)
}

// DeleteOutlet removes a store that no order references.
func (s *SQLStore) DeleteOutlet(ctx context.Context, id string) error {
	if err := s.deleteByID(ctx, "stores", id); err != nil {
		return err
	}
	s.logger.Info("deleted store", "id", id)
	return nil
}

func scanOutlet(row rowScanner) (*Outlet, error) {
	var o Outlet
	var phone, address, agentID sql.NullString
	var location []byte

	err := row.Scan(&o.ID, &o.Name, &phone, &address, &location, &agentID, scanTime(&o.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning store: %w", err)
	}

	o.Phone = phone.String
	o.Address = address.String
	if len(location) > 0 {
		o.Location = json.RawMessage(location)
	}
	if agentID.Valid {
		id := agentID.String
		o.AgentID = &id
	}
	return &o, nil
}

func (s *SQLStore) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		if s.dialect.isForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 || string(raw) == "null" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
