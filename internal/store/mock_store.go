// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	agents   map[string]*Agent
	byTG     map[int64]string // telegram ID -> agent ID
	admins   map[string]*Admin
	products map[string]*Product
	outlets  map[string]*Outlet
	orders   []*Order

	// PlaceOrderErr, when set, is returned by PlaceOrder without writing anything.
	PlaceOrderErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		agents:   make(map[string]*Agent),
		byTG:     make(map[int64]string),
		admins:   make(map[string]*Admin),
		products: make(map[string]*Product),
		outlets:  make(map[string]*Outlet),
	}
}

func fill(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}

// CreateAgent stores a new agent.
func (m *MockStore) CreateAgent(ctx context.Context, agent *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byTG[agent.TelegramID]; exists {
		return ErrAgentExists
	}
	fill(&agent.ID, &agent.CreatedAt)
	if agent.Role == "" {
		agent.Role = RoleAgent
	}

	a := *agent
	m.agents[a.ID] = &a
	m.byTG[a.TelegramID] = a.ID
	return nil
}

// GetAgent retrieves an agent by ID.
func (m *MockStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *a
	return &result, nil
}

// GetAgentByTelegramID retrieves an agent by Telegram user ID.
func (m *MockStore) GetAgentByTelegramID(ctx context.Context, telegramID int64) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byTG[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.agents[id]
	return &result, nil
}

// ListAgents returns all agents, newest first.
func (m *MockStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		c := *a
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CreateAdmin stores a new admin.
func (m *MockStore) CreateAdmin(ctx context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !admin.Role.Valid() {
		return fmt.Errorf("invalid admin role %q", admin.Role)
	}
	for _, a := range m.admins {
		if a.Username == admin.Username {
			return ErrUsernameExists
		}
	}
	fill(&admin.ID, &admin.CreatedAt)

	a := *admin
	m.admins[a.ID] = &a
	return nil
}

// GetAdmin retrieves an admin by ID.
func (m *MockStore) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *a
	return &result, nil
}

// GetAdminByUsername retrieves an admin by username.
func (m *MockStore) GetAdminByUsername(ctx context.Context, username string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.admins {
		if a.Username == username {
			result := *a
			return &result, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateAdminPassword replaces an admin's password hash.
func (m *MockStore) UpdateAdminPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

// ListAdmins returns all admins ordered by creation time.
func (m *MockStore) ListAdmins(ctx context.Context) ([]*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Admin, 0, len(m.admins))
	for _, a := range m.admins {
		c := *a
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func copyProduct(p *Product) *Product {
	c := *p
	if p.Stock != nil {
		n := *p.Stock
		c.Stock = &n
	}
	return &c
}

// CreateProduct stores a new product.
func (m *MockStore) CreateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fill(&p.ID, &p.CreatedAt)
	m.products[p.ID] = copyProduct(p)
	return nil
}

// GetProduct retrieves a product by ID.
func (m *MockStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

// ListProducts returns all products ordered by name.
func (m *MockStore) ListProducts(ctx context.Context) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, copyProduct(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// UpdateProduct overwrites an existing product.
func (m *MockStore) UpdateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	c := copyProduct(p)
	c.CreatedAt = existing.CreatedAt
	m.products[p.ID] = c
	return nil
}

// DeleteProduct removes a product that no order references.
func (m *MockStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	for _, o := range m.orders {
		if o.ProductID == id {
			return ErrInUse
		}
	}
	delete(m.products, id)
	return nil
}

func copyOutlet(o *Outlet) *Outlet {
	c := *o
	if o.AgentID != nil {
		id := *o.AgentID
		c.AgentID = &id
	}
	if o.Location != nil {
		c.Location = append([]byte(nil), o.Location...)
	}
	return &c
}

// CreateOutlet stores a new store.
func (m *MockStore) CreateOutlet(ctx context.Context, o *Outlet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.AgentID != nil {
		if _, ok := m.agents[*o.AgentID]; !ok {
			return ErrNotFound
		}
	}
	fill(&o.ID, &o.CreatedAt)
	m.outlets[o.ID] = copyOutlet(o)
	return nil
}

// GetOutlet retrieves a store by ID.
func (m *MockStore) GetOutlet(ctx context.Context, id string) (*Outlet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.outlets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOutlet(o), nil
}

// ListOutlets returns stores matching the filter, newest first.
func (m *MockStore) ListOutlets(ctx context.Context, filter OutletFilter) ([]*Outlet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Outlet{}
	for _, o := range m.outlets {
		if filter.AgentID != "" {
			assigned := o.AgentID != nil && *o.AgentID == filter.AgentID
			unassigned := o.AgentID == nil && filter.IncludeUnassigned
			if !assigned && !unassigned {
				continue
			}
		}
		result = append(result, copyOutlet(o))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateOutlet overwrites an existing store.
func (m *MockStore) UpdateOutlet(ctx context.Context, o *Outlet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.outlets[o.ID]
	if !ok {
		return ErrNotFound
	}
	if o.AgentID != nil {
		if _, ok := m.agents[*o.AgentID]; !ok {
			return ErrNotFound
		}
	}
	c := copyOutlet(o)
	c.CreatedAt = existing.CreatedAt
	m.outlets[o.ID] = c
	return nil
}

// DeleteOutlet removes a store that no order references.
func (m *MockStore) DeleteOutlet(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.outlets[id]; !ok {
		return ErrNotFound
	}
	for _, o := range m.orders {
		if o.StoreID == id {
			return ErrInUse
		}
	}
	delete(m.outlets, id)
	return nil
}

// PlaceOrder records the order and decrements tracked stock, floored at zero.
func (m *MockStore) PlaceOrder(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PlaceOrderErr != nil {
		return m.PlaceOrderErr
	}

	p, ok := m.products[order.ProductID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m.agents[order.AgentID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.outlets[order.StoreID]; !ok {
		return ErrNotFound
	}

	fill(&order.ID, &order.CreatedAt)
	if p.Stock != nil {
		remaining := max(*p.Stock-order.Quantity, 0)
		p.Stock = &remaining
	}

	o := *order
	m.orders = append(m.orders, &o)
	return nil
}

// ListOrderLines returns orders joined with display names, newest first.
func (m *MockStore) ListOrderLines(ctx context.Context, filter OrderFilter) ([]*OrderLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines := []*OrderLine{}
	for _, o := range m.orders {
		if filter.AgentID != "" && o.AgentID != filter.AgentID {
			continue
		}
		line := &OrderLine{Order: *o}
		if a, ok := m.agents[o.AgentID]; ok {
			line.AgentName = a.Name
		}
		if p, ok := m.products[o.ProductID]; ok {
			line.ProductName = p.Name
		}
		if s, ok := m.outlets[o.StoreID]; ok {
			line.StoreName = s.Name
		}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].CreatedAt.After(lines[j].CreatedAt)
	})
	if filter.Limit > 0 && len(lines) > filter.Limit {
		lines = lines[:filter.Limit]
	}
	return lines, nil
}

// ResetAll clears every collection.
func (m *MockStore) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.agents = make(map[string]*Agent)
	m.byTG = make(map[int64]string)
	m.admins = make(map[string]*Admin)
	m.products = make(map[string]*Product)
	m.outlets = make(map[string]*Outlet)
	m.orders = nil
	return nil
}

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op for the mock store.
func (m *MockStore) Close() error { return nil }
