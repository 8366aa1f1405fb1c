// ABOUTME: Tests for order intake validation, ownership and stock handling
// ABOUTME: Runs against the in-memory MockStore

package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/store"
)

type fixture struct {
	store   *store.MockStore
	svc     *Service
	agent   *store.Agent
	other   *store.Agent
	product *store.Product
	outlet  *store.Outlet
}

func intPtr(n int) *int { return &n }

func newFixture(t *testing.T, stock *int) *fixture {
	t.Helper()
	ctx := context.Background()
	ms := store.NewMockStore()

	f := &fixture{
		store:   ms,
		svc:     NewService(ms, nil),
		agent:   &store.Agent{TelegramID: 1, Name: "Ali", Phone: "+1"},
		other:   &store.Agent{TelegramID: 2, Name: "Vali", Phone: "+2"},
		product: &store.Product{Name: "Cola", Price: decimal.NewFromInt(100), Stock: stock},
	}
	require.NoError(t, ms.CreateAgent(ctx, f.agent))
	require.NoError(t, ms.CreateAgent(ctx, f.other))
	require.NoError(t, ms.CreateProduct(ctx, f.product))
	f.outlet = &store.Outlet{Name: "Corner", AgentID: &f.agent.ID}
	require.NoError(t, ms.CreateOutlet(ctx, f.outlet))
	return f
}

func (f *fixture) request(qty *int) CreateRequest {
	return CreateRequest{
		AgentID:   f.agent.ID,
		ProductID: f.product.ID,
		StoreID:   f.outlet.ID,
		Quantity:  qty,
	}
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	lines, err := f.store.ListOrderLines(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	return len(lines)
}

func TestCreate_StockFloorsAtZero(t *testing.T) {
	f := newFixture(t, intPtr(3))
	ctx := context.Background()

	order, err := f.svc.Create(ctx, f.request(intPtr(5)))
	require.NoError(t, err)
	assert.Equal(t, 5, order.Quantity)
	assert.True(t, order.UnitPrice.Equal(decimal.NewFromInt(100)))

	p, err := f.store.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 0, *p.Stock)
}

func TestCreate_UntrackedStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request(intPtr(2)))
	require.NoError(t, err)

	p, err := f.store.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Stock)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		message string
	}{
		{"missing quantity", func(r *CreateRequest) { r.Quantity = nil }, "missing fields"},
		{"missing agent", func(r *CreateRequest) { r.AgentID = "" }, "missing fields"},
		{"missing product", func(r *CreateRequest) { r.ProductID = "" }, "missing fields"},
		{"missing store", func(r *CreateRequest) { r.StoreID = "" }, "missing fields"},
		{"zero quantity", func(r *CreateRequest) { r.Quantity = intPtr(0) }, "invalid quantity"},
		{"negative quantity", func(r *CreateRequest) { r.Quantity = intPtr(-3) }, "invalid quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, intPtr(10))
			req := f.request(intPtr(1))
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)
			e, ok := apperr.As(err)
			require.True(t, ok, "expected apperr, got %v", err)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tt.message, e.Message)

			assert.Zero(t, f.orderCount(t), "no order written")
			p, _ := f.store.GetProduct(context.Background(), f.product.ID)
			assert.Equal(t, 10, *p.Stock, "stock untouched")
		})
	}
}

func TestCreate_MissingReferences(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		message string
	}{
		{"agent", func(r *CreateRequest) { r.AgentID = "ghost" }, "agent not found"},
		{"product", func(r *CreateRequest) { r.ProductID = "ghost" }, "product not found"},
		{"store", func(r *CreateRequest) { r.StoreID = "ghost" }, "store not found"},
		{"agent checked first", func(r *CreateRequest) { r.AgentID = "ghost"; r.StoreID = "ghost" }, "agent not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := f.request(intPtr(1))
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindNotFound, e.Kind)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestCreate_StoreOwnership(t *testing.T) {
	f := newFixture(t, intPtr(10))
	ctx := context.Background()

	req := f.request(intPtr(1))
	req.AgentID = f.other.ID
	_, err := f.svc.Create(ctx, req)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Zero(t, f.orderCount(t))

	unassigned := &store.Outlet{Name: "Bazaar"}
	require.NoError(t, f.store.CreateOutlet(ctx, unassigned))
	req.StoreID = unassigned.ID
	_, err = f.svc.Create(ctx, req)
	assert.NoError(t, err, "unassigned stores accept any agent")
}

func TestCreate_PriceSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request(intPtr(2)))
	require.NoError(t, err)

	f.product.Price = decimal.NewFromInt(999)
	require.NoError(t, f.store.UpdateProduct(ctx, f.product))

	lines, err := f.svc.ListForAgent(ctx, f.agent.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Revenue().Equal(decimal.NewFromInt(200)))
}

func TestCreate_PlaceOrderFailureIsUpstream(t *testing.T) {
	f := newFixture(t, intPtr(10))
	f.store.PlaceOrderErr = errors.New("tx aborted")

	_, err := f.svc.Create(context.Background(), f.request(intPtr(1)))
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Zero(t, f.orderCount(t))
}
