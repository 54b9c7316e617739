// Package handlers contains all HTTP handlers for the API
package handlers

import (
	"github.com/yocodex/backend/internal/auth"
	"github.com/yocodex/backend/internal/cache"
	"github.com/yocodex/backend/internal/notify"
	"github.com/yocodex/backend/internal/social"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          *auth.Service
	notifications *notify.Service
	social        *social.Service
	cacheManager  *cache.Manager
}

// NewHandlers creates a new handlers instance
func NewHandlers(authService *auth.Service, notifications *notify.Service, socialService *social.Service, cacheManager *cache.Manager) *Handlers {
	return &Handlers{
		auth:          authService,
		notifications: notifications,
		social:        socialService,
		cacheManager:  cacheManager,
	}
}
