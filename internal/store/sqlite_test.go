// ABOUTME: Tests for the SQLite-backed store implementation
// ABOUTME: Covers agents, admins, catalog CRUD, atomic orders and reset

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestAgents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := &Agent{TelegramID: 555, Name: "Ali", Phone: "+901234567"}
	require.NoError(t, s.CreateAgent(ctx, agent))
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, RoleAgent, agent.Role)

	got, err := s.GetAgentByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)
	assert.Equal(t, "Ali", got.Name)
	assert.Equal(t, "+901234567", got.Phone)
	assert.WithinDuration(t, agent.CreatedAt, got.CreatedAt, time.Millisecond)

	t.Run("duplicate telegram id", func(t *testing.T) {
		err := s.CreateAgent(ctx, &Agent{TelegramID: 555, Name: "Other", Phone: "+1"})
		if !errors.Is(err, ErrAgentExists) {
			t.Errorf("expected ErrAgentExists, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetAgent(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		second := &Agent{TelegramID: 777, Name: "Vali", Phone: "+2", CreatedAt: agent.CreatedAt.Add(time.Minute)}
		require.NoError(t, s.CreateAgent(ctx, second))

		agents, err := s.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, "Vali", agents[0].Name)
		assert.Equal(t, "Ali", agents[1].Name)
	})
}

func TestAdmins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	admin := &Admin{Username: "Admin", PasswordHash: "hash", Role: AdminRoleSuperAdmin}
	require.NoError(t, s.CreateAdmin(ctx, admin))

	got, err := s.GetAdminByUsername(ctx, "Admin")
	require.NoError(t, err)
	assert.Equal(t, AdminRoleSuperAdmin, got.Role)

	err = s.CreateAdmin(ctx, &Admin{Username: "Admin", PasswordHash: "x", Role: AdminRoleAdmin})
	assert.ErrorIs(t, err, ErrUsernameExists)

	err = s.CreateAdmin(ctx, &Admin{Username: "bad", PasswordHash: "x", Role: "root"})
	assert.Error(t, err)

	require.NoError(t, s.UpdateAdminPassword(ctx, admin.ID, "new-hash"))
	got, err = s.GetAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, s.UpdateAdminPassword(ctx, "missing", "x"), ErrNotFound)
}

func TestProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &Product{Name: "Cola", Description: "1L", Price: decimal.RequireFromString("12.50"), Stock: intPtr(10)}
	require.NoError(t, s.CreateProduct(ctx, p))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")), "price %s", got.Price)
	require.NotNil(t, got.Stock)
	assert.Equal(t, 10, *got.Stock)
	assert.Equal(t, "1L", got.Description)

	untracked := &Product{Name: "Bread", Price: decimal.NewFromInt(3)}
	require.NoError(t, s.CreateProduct(ctx, untracked))

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Bread", products[0].Name)
	assert.Nil(t, products[0].Stock)

	got.Name = "Cola Zero"
	got.Stock = nil
	require.NoError(t, s.UpdateProduct(ctx, got))
	got, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cola Zero", got.Name)
	assert.Nil(t, got.Stock)

	assert.ErrorIs(t, s.UpdateProduct(ctx, &Product{ID: "missing", Name: "x"}), ErrNotFound)

	require.NoError(t, s.DeleteProduct(ctx, untracked.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, untracked.ID), ErrNotFound)
}

func TestOutlets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	agent := &Agent{TelegramID: 1, Name: "Ali", Phone: "+1"}
	require.NoError(t, s.CreateAgent(ctx, agent))

	now := time.Now().UTC()
	owned := &Outlet{
		Name:      "Corner",
		Address:   "Main st",
		Location:  json.RawMessage(`{"lat":41.3,"lng":69.2}`),
		AgentID:   &agent.ID,
		CreatedAt: now,
	}
	require.NoError(t, s.CreateOutlet(ctx, owned))
	free := &Outlet{Name: "Market", CreatedAt: now.Add(time.Second)}
	require.NoError(t, s.CreateOutlet(ctx, free))

	other := &Agent{TelegramID: 2, Name: "Vali", Phone: "+2"}
	require.NoError(t, s.CreateAgent(ctx, other))
	theirs := &Outlet{Name: "Kiosk", AgentID: &other.ID}
	require.NoError(t, s.CreateOutlet(ctx, theirs))

	got, err := s.GetOutlet(ctx, owned.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":41.3,"lng":69.2}`, string(got.Location))
	require.NotNil(t, got.AgentID)
	assert.Equal(t, agent.ID, *got.AgentID)

	all, err := s.ListOutlets(ctx, OutletFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.ListOutlets(ctx, OutletFilter{AgentID: agent.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Corner", mine[0].Name)

	visible, err := s.ListOutlets(ctx, OutletFilter{AgentID: agent.ID, IncludeUnassigned: true})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "Market", visible[0].Name)

	t.Run("unknown agent", func(t *testing.T) {
		missing := "missing"
		err := s.CreateOutlet(ctx, &Outlet{Name: "Ghost", AgentID: &missing})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unassign", func(t *testing.T) {
		got.AgentID = nil
		require.NoError(t, s.UpdateOutlet(ctx, got))
		reloaded, err := s.GetOutlet(ctx, owned.ID)
		require.NoError(t, err)
		assert.Nil(t, reloaded.AgentID)
	})

	require.NoError(t, s.DeleteOutlet(ctx, theirs.ID))
	assert.ErrorIs(t, s.DeleteOutlet(ctx, theirs.ID), ErrNotFound)
}

type fixture struct {
	agent   *Agent
	product *Product
	outlet  *Outlet
}

func seed(t *testing.T, s Store, stock *int) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{
		agent:   &Agent{TelegramID: 42, Name: "Ali", Phone: "+1"},
		product: &Product{Name: "Cola", Price: decimal.NewFromInt(100), Stock: stock},
	}
	require.NoError(t, s.CreateAgent(ctx, f.agent))
	require.NoError(t, s.CreateProduct(ctx, f.product))
	f.outlet = &Outlet{Name: "Corner", AgentID: &f.agent.ID}
	require.NoError(t, s.CreateOutlet(ctx, f.outlet))
	return f
}

func TestPlaceOrder_StockFloorsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, intPtr(3))

	order := &Order{
		AgentID:   f.agent.ID,
		ProductID: f.product.ID,
		StoreID:   f.outlet.ID,
		Quantity:  5,
		UnitPrice: f.product.Price,
	}
	require.NoError(t, s.PlaceOrder(ctx, order))
	assert.NotEmpty(t, order.ID)

	p, err := s.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 0, *p.Stock)
}

func TestPlaceOrder_UntrackedStockStaysNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, nil)

	require.NoError(t, s.PlaceOrder(ctx, &Order{
		AgentID: f.agent.ID, ProductID: f.product.ID, StoreID: f.outlet.ID,
		Quantity: 2, UnitPrice: f.product.Price,
	}))

	p, err := s.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Stock)
}

func TestPlaceOrder_UnknownReferenceWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, intPtr(10))

	err := s.PlaceOrder(ctx, &Order{
		AgentID: f.agent.ID, ProductID: f.product.ID, StoreID: "missing",
		Quantity: 2, UnitPrice: f.product.Price,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	lines, err := s.ListOrderLines(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)

	p, err := s.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *p.Stock)
}

func TestListOrderLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, nil)

	other := &Agent{TelegramID: 43, Name: "Vali", Phone: "+2"}
	require.NoError(t, s.CreateAgent(ctx, other))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, agentID := range []string{f.agent.ID, f.agent.ID, other.ID} {
		require.NoError(t, s.PlaceOrder(ctx, &Order{
			AgentID:   agentID,
			ProductID: f.product.ID,
			StoreID:   f.outlet.ID,
			Quantity:  i + 1,
			UnitPrice: f.product.Price,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.ListOrderLines(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Vali", all[0].AgentName)
	assert.Equal(t, "Cola", all[0].ProductName)
	assert.Equal(t, "Corner", all[0].StoreName)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Hour)))

	mine, err := s.ListOrderLines(ctx, OrderFilter{AgentID: f.agent.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 2, mine[0].Quantity)
	assert.True(t, mine[0].Revenue().Equal(decimal.NewFromInt(200)))

	t.Run("referenced rows cannot be deleted", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteProduct(ctx, f.product.ID), ErrInUse)
		assert.ErrorIs(t, s.DeleteOutlet(ctx, f.outlet.ID), ErrInUse)
	})
}

func TestResetAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seed(t, s, intPtr(5))
	require.NoError(t, s.PlaceOrder(ctx, &Order{
		AgentID: f.agent.ID, ProductID: f.product.ID, StoreID: f.outlet.ID,
		Quantity: 1, UnitPrice: f.product.Price,
	}))
	require.NoError(t, s.CreateAdmin(ctx, &Admin{Username: "Admin", PasswordHash: "h", Role: AdminRoleSuperAdmin}))

	require.NoError(t, s.ResetAll(ctx))

	agents, err := s.ListAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)
	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Empty(t, admins)
	lines, err := s.ListOrderLines(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMockStore_MatchesSQLSemantics(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	f := seed(t, m, intPtr(3))

	require.NoError(t, m.PlaceOrder(ctx, &Order{
		AgentID: f.agent.ID, ProductID: f.product.ID, StoreID: f.outlet.ID,
		Quantity: 5, UnitPrice: f.product.Price,
	}))

	p, err := m.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *p.Stock)

	assert.ErrorIs(t, m.CreateAgent(ctx, &Agent{TelegramID: 42}), ErrAgentExists)
	assert.ErrorIs(t, m.DeleteProduct(ctx, f.product.ID), ErrInUse)

	lines, err := m.ListOrderLines(ctx, OrderFilter{AgentID: f.agent.ID})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Corner", lines[0].StoreName)
}
