// ABOUTME: Admin account persistence
// ABOUTME: Supports username/password auth with an explicit role column

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const adminColumns = `id, username, password_hash, role, created_at`

// CreateAdmin creates a new admin. ID and CreatedAt are filled in when empty.
func (s *SQLStore) CreateAdmin(ctx context.Context, admin *Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.New().String()
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}
	if !admin.Role.Valid() {
		return fmt.Errorf("invalid admin role %q", admin.Role)
	}

	_, err := s.exec(ctx, `
		INSERT INTO admins (id, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		string(admin.Role),
		formatTime(admin.CreatedAt),
	)
	if err != nil {
		// Check for unique constraint violation
		if s.dialect.isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting admin: %w", err)
	}

	s.logger.Info("created admin", "id", admin.ID, "username", admin.Username, "role", admin.Role)
	return nil
}

// GetAdmin retrieves an admin by ID.
func (s *SQLStore) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	row := s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)
	return scanAdmin(row)
}

// GetAdminByUsername retrieves an admin by username.
func (s *SQLStore) GetAdminByUsername(ctx context.Context, username string) (*Admin, error) {
	row := s.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE username = ?`, username)
	return scanAdmin(row)
}

// UpdateAdminPassword replaces an admin's password hash.
func (s *SQLStore) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.exec(ctx, `UPDATE admins SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating admin password: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated admin password", "id", id)
	return nil
}

// ListAdmins returns all admins ordered by creation time.
func (s *SQLStore) ListAdmins(ctx context.Context) ([]*Admin, error) {
	rows, err := s.query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	admins := []*Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admins: %w", err)
	}
	return admins, nil
}

func scanAdmin(row rowScanner) (*Admin, error) {
	var a Admin
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, scanTime(&a.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning admin: %w", err)
	}
	a.Role = AdminRole(role)
	return &a, nil
}
