// ABOUTME: Admin identity: bootstrap super-admin, password login and account management
// ABOUTME: Passwords are bcrypt hashes; login issues a signed bearer token

package admins

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/store"
)

// BootstrapUsername is the username of the account created at startup and after reset.
const BootstrapUsername = "Admin"

// dummyHash keeps login timing uniform when the username does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenIssuer signs bearer tokens for admins.
type TokenIssuer interface {
	Generate(admin *store.Admin, expiresIn time.Duration) (string, error)
}

// Options configures a Service.
type Options struct {
	BootstrapPassword string
	TokenTTL          time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token    string          `json:"token"`
	Role     store.AdminRole `json:"role"`
	Username string          `json:"username"`
}

// Service manages admin accounts.
type Service struct {
	store  store.Store
	tokens TokenIssuer
	opts   Options
	logger *slog.Logger
}

// NewService creates an admin Service.
func NewService(s store.Store, tokens TokenIssuer, opts Options, logger *slog.Logger) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		tokens: tokens,
		opts:   opts,
		logger: logger.With("component", "admins"),
	}
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// EnsureSuperAdmin creates the bootstrap super-admin unless it exists.
// It reports whether an account was created.
func (s *Service) EnsureSuperAdmin(ctx context.Context) (bool, error) {
	_, err := s.store.GetAdminByUsername(ctx, BootstrapUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, apperr.Upstream("looking up bootstrap admin", err)
	}

	hash, err := s.hash(s.opts.BootstrapPassword)
	if err != nil {
		return false, apperr.Upstream("hashing bootstrap password", err)
	}

	err = s.store.CreateAdmin(ctx, &store.Admin{
		Username:     BootstrapUsername,
		PasswordHash: hash,
		Role:         store.AdminRoleSuperAdmin,
	})
	if errors.Is(err, store.ErrUsernameExists) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Upstream("creating bootstrap admin", err)
	}

	s.logger.Info("bootstrap super-admin created", "username", BootstrapUsername)
	return true, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password required")
	}

	admin, err := s.store.GetAdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, apperr.Unauthorized("invalid username or password")
	}
	if err != nil {
		return nil, apperr.Upstream("looking up admin", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}

	token, err := s.tokens.Generate(admin, s.opts.TokenTTL)
	if err != nil {
		return nil, apperr.Upstream("signing token", err)
	}

	s.logger.Info("admin login successful", "username", admin.Username)
	return &LoginResult{Token: token, Role: admin.Role, Username: admin.Username}, nil
}

// AddAdmin creates a regular admin account.
func (s *Service) AddAdmin(ctx context.Context, username, password string) (*store.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password required")
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, apperr.Upstream("hashing password", err)
	}

	admin := &store.Admin{Username: username, PasswordHash: hash, Role: store.AdminRoleAdmin}
	err = s.store.CreateAdmin(ctx, admin)
	if errors.Is(err, store.ErrUsernameExists) {
		return nil, apperr.Conflict("username already exists")
	}
	if err != nil {
		return nil, apperr.Upstream("creating admin", err)
	}

	s.logger.Info("admin added", "username", username)
	return admin, nil
}

// ChangePassword replaces the admin's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("oldPassword and newPassword required")
	}

	admin, err := s.store.GetAdmin(ctx, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("admin not found")
	}
	if err != nil {
		return apperr.Upstream("looking up admin", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.Unauthorized("old password is incorrect")
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return apperr.Upstream("hashing password", err)
	}
	if err := s.store.UpdateAdminPassword(ctx, adminID, hash); err != nil {
		return apperr.Upstream("updating password", err)
	}

	s.logger.Info("admin password changed", "username", admin.Username)
	return nil
}

// Reset wipes every operational table and recreates the bootstrap super-admin.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return apperr.Upstream("resetting data", err)
	}
	if _, err := s.EnsureSuperAdmin(ctx); err != nil {
		return err
	}
	s.logger.Warn("all data reset")
	return nil
}
