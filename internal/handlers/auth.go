package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/auth"
	apierrors "github.com/yocodex/backend/internal/errors"
)

// Register creates a new account
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid registration payload").WithDetails(err.Error()))
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			respondError(c, apierrors.Conflict("email already registered"))
		case errors.Is(err, auth.ErrUsernameExists):
			respondError(c, apierrors.Conflict("username already taken"))
		default:
			respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email/password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid login payload").WithDetails(err.Error()))
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		// Same answer for a missing account and a wrong password
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, apierrors.Unauthorized("invalid email or password"))
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's profile
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
