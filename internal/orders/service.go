// ABOUTME: Order intake: validates an agent's order and records it with stock decrement
// ABOUTME: Referenced rows are fetched concurrently, then checked in a fixed order

package orders

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/store"
)

// CreateRequest is an order as submitted by an agent. Quantity is a pointer
// so that a missing value can be told apart from zero.
type CreateRequest struct {
	AgentID   string
	ProductID string
	StoreID   string
	Quantity  *int
}

// Service places orders.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates an order Service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger.With("component", "orders")}
}

// Create validates req and places the order. The returned order carries the
// unit price snapshot taken from the product.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*store.Order, error) {
	if req.AgentID == "" || req.ProductID == "" || req.StoreID == "" || req.Quantity == nil {
		return nil, apperr.Validation("missing fields")
	}
	if *req.Quantity <= 0 {
		return nil, apperr.Validation("invalid quantity")
	}

	var (
		agent   *store.Agent
		product *store.Product
		outlet  *store.Outlet
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agent, err = s.store.GetAgent(gctx, req.AgentID)
		return ignoreNotFound(err)
	})
	g.Go(func() error {
		var err error
		product, err = s.store.GetProduct(gctx, req.ProductID)
		return ignoreNotFound(err)
	})
	g.Go(func() error {
		var err error
		outlet, err = s.store.GetOutlet(gctx, req.StoreID)
		return ignoreNotFound(err)
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Upstream("loading order references", err)
	}

	switch {
	case agent == nil:
		return nil, apperr.NotFound("agent not found")
	case product == nil:
		return nil, apperr.NotFound("product not found")
	case outlet == nil:
		return nil, apperr.NotFound("store not found")
	case !outlet.OwnedBy(agent.ID):
		return nil, apperr.Forbidden("store owned by another agent")
	}

	order := &store.Order{
		AgentID:   agent.ID,
		ProductID: product.ID,
		StoreID:   outlet.ID,
		Quantity:  *req.Quantity,
		UnitPrice: product.Price,
	}
	if err := s.store.PlaceOrder(ctx, order); err != nil {
		return nil, apperr.Upstream("placing order", err)
	}

	s.logger.Info("order placed",
		"order_id", order.ID,
		"agent_id", order.AgentID,
		"product_id", order.ProductID,
		"store_id", order.StoreID,
		"quantity", order.Quantity,
	)
	return order, nil
}

// ListForAgent returns an agent's order lines, newest first.
func (s *Service) ListForAgent(ctx context.Context, agentID string) ([]*store.OrderLine, error) {
	lines, err := s.store.ListOrderLines(ctx, store.OrderFilter{AgentID: agentID})
	if err != nil {
		return nil, apperr.Upstream("listing orders", err)
	}
	return lines, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
