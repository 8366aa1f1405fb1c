// ABOUTME: Store interfaces and data types for picco persistence
// ABOUTME: Defines Agent, Admin, Product, Outlet and Order and the interfaces services depend on

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAgentExists is returned when an agent with the same telegram ID is already registered
var ErrAgentExists = errors.New("agent already registered")

// ErrUsernameExists is returned when trying to create an admin with an existing username.
var ErrUsernameExists = errors.New("username already exists")

// ErrInUse is returned when deleting a product or store that orders still reference.
var ErrInUse = errors.New("referenced by existing orders")

// RoleAgent is the only role an Agent carries.
const RoleAgent = "agent"

// AdminRole distinguishes regular admins from the bootstrap super-admin.
type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "super-admin"
)

// Valid reports whether r is a known role.
func (r AdminRole) Valid() bool {
	return r == AdminRoleAdmin || r == AdminRoleSuperAdmin
}

// Agent is a sales representative registered through the Telegram bot.
type Agent struct {
	ID         string    `json:"id"`
	TelegramID int64     `json:"telegramId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Admin is a back-office user who signs in with a password.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Product is a sellable item. A nil Stock means inventory is not tracked.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Outlet is a retail store. A nil AgentID means the store is unassigned.
type Outlet struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	Location  json.RawMessage `json:"location,omitempty"`
	AgentID   *string         `json:"agentId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// OwnedBy reports whether the outlet may receive orders from the given agent.
func (o *Outlet) OwnedBy(agentID string) bool {
	return o.AgentID == nil || *o.AgentID == agentID
}

// Order is an immutable record of a sale. UnitPrice is the product price at
// the moment the order was placed.
type Order struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agentId"`
	ProductID string          `json:"productId"`
	StoreID   string          `json:"storeId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Revenue returns quantity times unit price.
func (o *Order) Revenue() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// OrderLine is an order joined with the display names of what it references.
type OrderLine struct {
	Order
	AgentName   string `json:"agentName"`
	ProductName string `json:"productName"`
	StoreName   string `json:"storeName"`
}

// OrderFilter narrows ListOrderLines. Zero values mean no constraint.
type OrderFilter struct {
	AgentID string
	Limit   int
}

// OutletFilter narrows ListOutlets.
type OutletFilter struct {
	// AgentID restricts the result to stores assigned to this agent.
	AgentID string
	// IncludeUnassigned adds stores with no agent when AgentID is set.
	IncludeUnassigned bool
}

// AgentStore persists agents.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetAgentByTelegramID(ctx context.Context, telegramID int64) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
}

// AdminStore persists admin accounts.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *Admin) error
	GetAdmin(ctx context.Context, id string) (*Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)
	UpdateAdminPassword(ctx context.Context, id, passwordHash string) error
	ListAdmins(ctx context.Context) ([]*Admin, error)
}

// CatalogStore persists products and outlets.
type CatalogStore interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error

	CreateOutlet(ctx context.Context, o *Outlet) error
	GetOutlet(ctx context.Context, id string) (*Outlet, error)
	ListOutlets(ctx context.Context, filter OutletFilter) ([]*Outlet, error)
	UpdateOutlet(ctx context.Context, o *Outlet) error
	DeleteOutlet(ctx context.Context, id string) error
}

// OrderStore persists orders.
type OrderStore interface {
	// PlaceOrder inserts the order and decrements the product's tracked stock
	// (floored at zero) as one atomic unit.
	PlaceOrder(ctx context.Context, order *Order) error
	ListOrderLines(ctx context.Context, filter OrderFilter) ([]*OrderLine, error)
}

// Store is the full directory store.
type Store interface {
	AgentStore
	AdminStore
	CatalogStore
	OrderStore

	// ResetAll deletes every row from every operational table.
	ResetAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
