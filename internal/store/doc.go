// Package store provides persistent storage for picco using SQLite or Postgres.
//
// # Architecture
//
// The store package uses an interface-driven architecture with narrow
// interfaces that services depend on:
//
//   - AgentStore: Telegram-registered sales agents (the users table)
//   - AdminStore: Back-office admin accounts
//   - CatalogStore: Products and retail stores (Outlet)
//   - OrderStore: Atomic order placement and reporting lines
//
// Store embeds all of them plus ResetAll, Ping and Close. SQLStore implements
// Store over database/sql for both supported drivers; the differences live in
// the dialect type (placeholders, DDL, constraint errors).
//
// # Data Models
//
//   - Agent: Sales rep identified by a unique Telegram user ID
//   - Admin: Username/password account with role admin or super-admin
//   - Product: Price as decimal, optional tracked stock
//   - Outlet: A retail store, optionally assigned to one agent
//   - Order: Immutable sale with a unit price snapshot
//   - OrderLine: Order joined with agent, product and store names
//
// # Orders
//
// PlaceOrder inserts the order and decrements stock in one transaction.
// Tracked stock is floored at zero; a NULL stock stays NULL.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrAgentExists: Telegram ID already registered
//   - ErrUsernameExists: Admin username taken
//   - ErrInUse: Product or store referenced by orders
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	s := store.NewMockStore()
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for integration
// tests with real SQLite.
package store
