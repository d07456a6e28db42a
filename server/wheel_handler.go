package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/spinwin-labs/spin-reward-service/auth"
	"github.com/spinwin-labs/spin-reward-service/errors"
)

// WheelHandler handles the spin flow HTTP surface.
//
// Flow: HTTP Request -> wheelRoutes -> WheelHandler -> spin.Service
//
// Responsibilities:
// - Extract the wallet identity from the JWT token
// - Call the spin service for business logic
// - Format and return HTTP responses
type WheelHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewWheelHandler creates a new wheel handler
func NewWheelHandler(app *App) *WheelHandler {
	return &WheelHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "wheel").Logger(),
	}
}

func (h *WheelHandler) extractIdentity(c *gin.Context) (string, error) {
	address, ok := auth.GetAddress(c)
	if !ok {
		return "", errors.New(errors.ErrUnauthorized, "wallet address not found in context")
	}
	return address, nil
}

// Spin executes one spin for the authenticated identity.
// Route: POST /api/wheel/spin
func (h *WheelHandler) Spin(c *gin.Context) {
	identity, err := h.extractIdentity(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	receipt, err := h.app.spinService.Execute(c.Request.Context(), identity)
	if err != nil {
		h.logger.Warn().Err(err).Str("identity", identity).Msg("spin rejected")
		HandleAppError(c, err)
		return
	}

	OK(c, receipt)
}

// Quota reports the identity's remaining spins for today.
// Route: GET /api/wheel/quota
func (h *WheelHandler) Quota(c *gin.Context) {
	identity, err := h.extractIdentity(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	remaining, err := h.app.spinService.Remaining(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error().Err(err).Str("identity", identity).Msg("failed to read quota")
		HandleAppError(c, err)
		return
	}

	OK(c, gin.H{"remaining": remaining})
}

// Table returns the outcome table for wheel display.
// Route: GET /api/wheel/table
func (h *WheelHandler) Table(c *gin.Context) {
	OK(c, h.app.spinService.Table().Normalize())
}

// GetClaim reports the current status of a payout claim.
// Route: GET /api/wheel/claims/:id
func (h *WheelHandler) GetClaim(c *gin.Context) {
	identity, err := h.extractIdentity(c)
	if err != nil {
		Unauthorized(c, err)
		return
	}

	claimID := c.Param("id")
	claim, err := h.app.spinService.Claim(c.Request.Context(), claimID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	// Claims are private to their winner.
	if claim.Identity != identity {
		HandleAppError(c, errors.New(errors.ErrClaimNotFound, "claim not found"))
		return
	}

	OK(c, claim)
}
