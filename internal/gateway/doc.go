// Package gateway orchestrates the picco server components.
//
// # Overview
//
// The gateway owns the directory store, the registration session backend,
// the REST API server and, when enabled, the Telegram bot. It makes sure the
// bootstrap super-admin exists before serving.
//
// # HTTP
//
// All REST routes live in package httpapi under /api. The gateway only adds
// the Telegram webhook route in webhook mode:
//
//	POST <telegram.webhook_path>
//
// # Telegram
//
// In polling mode the bot long-polls getUpdates in its own goroutine and
// handles updates one at a time. In webhook mode the webhook is registered at
// startup and updates arrive on the HTTP server.
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(ctx, cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Run shuts down with a fresh 5s context once ctx is canceled: the HTTP
// server drains, then the session backend and the store are closed.
package gateway
