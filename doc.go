// Package backend provides the YoCodex API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/notify: Notification engine (fan-out, dedup, read state)
// - internal/realtime: WebSocket server for real-time updates
// - internal/social: Follow graph and like set mutations
// - internal/database: Database connection and migrations
// - internal/cache: Redis caching layer
// - internal/middleware: HTTP middleware (rate limiting, etc.)
// - internal/metrics: Prometheus instrumentation
// - internal/seed: Development database seeding

// See the individual package documentation for detailed API reference.
package backend
