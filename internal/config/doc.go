// Package config handles configuration loading for picco.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// Missing optional values are filled with defaults before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PICCO_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/picco/picco.yaml
//  3. ~/.config/picco/picco.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PICCO_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	database:
//	  driver: "postgres"          # sqlite, postgres
//	  dsn: "${DATABASE_URL}"
//	  path: "./picco.db"          # sqlite only
//
//	auth:
//	  jwt_secret: "${PICCO_JWT_SECRET}"   # at least 32 bytes
//	  token_ttl: "12h"
//
//	bootstrap:
//	  admin_password: "${PICCO_ADMIN_PASSWORD}"
//
//	cors:
//	  allowed_origins: ["https://panel.example.com"]
//
//	telegram:
//	  enabled: true
//	  bot_token: "${TELEGRAM_BOT_TOKEN}"
//	  mode: "polling"             # polling, webhook
//	  webhook_base_url: "https://api.example.com"
//	  webhook_path: "/telegram/webhook"
//
//	webapp:
//	  base_url: "https://panel.example.com"
//	  agent_path: "/agent"
//	  admin_path: "/admin"
//
//	sessions:
//	  backend: "memory"           # memory, redis
//	  ttl: "30m"
//	  redis:
//	    addr: "localhost:6379"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
