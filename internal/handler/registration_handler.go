package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
	"github.com/noah-isme/bookwyrm-admin/pkg/response"
)

type registrationService interface {
	Evaluate(ctx context.Context, req dto.RegistrationAttemptRequest) (*dto.RegistrationDecision, error)
	RequestConfirmation(ctx context.Context, req dto.ConfirmationRequest) (*dto.ConfirmationQueued, error)
	ConfirmEmail(token string) (*dto.EmailConfirmed, error)
}

// RegistrationHandler exposes the registration gate to the sign-up flow.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler builds a new handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Evaluate godoc
// @Summary Evaluate a registration attempt against the current policy
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.RegistrationAttemptRequest true "Registration attempt"
// @Success 200 {object} response.Envelope{data=dto.RegistrationDecision}
// @Failure 422 {object} response.Envelope
// @Router /registration/evaluate [post]
func (h *RegistrationHandler) Evaluate(c *gin.Context) {
	var req dto.RegistrationAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	decision, err := h.service.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision)
}

// RequestConfirmation godoc
// @Summary Queue an email confirmation for a new account
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmationRequest true "Confirmation request"
// @Success 202 {object} response.Envelope{data=dto.ConfirmationQueued}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /registration/confirmation [post]
func (h *RegistrationHandler) RequestConfirmation(c *gin.Context) {
	var req dto.ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid confirmation payload"))
		return
	}
	queued, err := h.service.RequestConfirmation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, queued)
}

// ConfirmEmail godoc
// @Summary Verify a mailed confirmation token
// @Tags Registration
// @Produce json
// @Param token path string true "Confirmation token"
// @Success 200 {object} response.Envelope{data=dto.EmailConfirmed}
// @Failure 403 {object} response.Envelope
// @Router /confirm-email/{token} [get]
func (h *RegistrationHandler) ConfirmEmail(c *gin.Context) {
	confirmed, err := h.service.ConfirmEmail(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, confirmed)
}
