package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/auth"
	"github.com/spinwin-labs/spin-reward-service/errors"
)

// DonationHandler handles donation requests.
type DonationHandler struct {
	app    *App
	logger zerolog.Logger
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(app *App) *DonationHandler {
	return &DonationHandler{
		app:    app,
		logger: app.logger.With().Str("handler", "donation").Logger(),
	}
}

type donationRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// Donate submits an on-chain donation for the authenticated identity.
// Route: POST /api/donations
func (h *DonationHandler) Donate(c *gin.Context) {
	identity, ok := auth.GetAddress(c)
	if !ok {
		Unauthorized(c, errors.New(errors.ErrUnauthorized, "wallet address not found in context"))
		return
	}

	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, errors.Wrap(err, errors.ErrInvalidRequest, "invalid donation request"))
		return
	}

	receipt, err := h.app.donationService.Donate(c.Request.Context(), identity, req.Amount)
	if err != nil {
		h.logger.Warn().Err(err).Str("identity", identity).Msg("donation rejected")
		HandleAppError(c, err)
		return
	}

	OK(c, receipt)
}

// Info returns the donation parameters clients need up front.
// Route: GET /api/donations/info
func (h *DonationHandler) Info(c *gin.Context) {
	OK(c, gin.H{
		"minAmount":   h.app.donationService.MinAmount(),
		"assetSymbol": h.app.config.Chain.AssetSymbol,
	})
}
