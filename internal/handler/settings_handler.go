package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/internal/middleware"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	"github.com/noah-isme/bookwyrm-admin/internal/service"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
	"github.com/noah-isme/bookwyrm-admin/pkg/response"
)

// RegistrationSettingsTemplate is the page template for the registration settings form.
const RegistrationSettingsTemplate = "settings/registration.html"

type registrationSettingsService interface {
	Current(ctx context.Context, actor *models.JWTClaims) (*models.RegistrationPolicy, error)
	Submit(ctx context.Context, form dto.RegistrationSettingsForm, actor *models.JWTClaims, meta service.RequestMeta) (*dto.RegistrationSettingsOutcome, error)
}

// SettingsHandler serves the registration settings admin page.
type SettingsHandler struct {
	service registrationSettingsService
	logger  *zap.Logger
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service registrationSettingsService, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{service: service, logger: logger}
}

// Show renders the form with the stored policy.
func (h *SettingsHandler) Show(c *gin.Context) {
	policy, err := h.service.Current(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.render(c, http.StatusOK, service.BuildRegistrationSettingsView(*policy, nil, nil))
}

// Submit replaces the policy from the posted form. Saved renders 200 with a success
// banner, a rejected form renders 422 with field errors, and a storage failure renders 500
// with the submitted values still in the form.
func (h *SettingsHandler) Submit(c *gin.Context) {
	var form dto.RegistrationSettingsForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Debug("unreadable settings form", zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid form submission"))
		return
	}

	outcome, err := h.service.Submit(c.Request.Context(), form, claimsFromContext(c), requestMeta(c))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrPersistence) {
			_ = c.Error(err)
			h.render(c, http.StatusInternalServerError, service.ViewForFailure(form))
			return
		}
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if !outcome.Saved {
		status = http.StatusUnprocessableEntity
	}
	h.render(c, status, service.ViewForOutcome(outcome))
}

func (h *SettingsHandler) render(c *gin.Context, status int, view dto.RegistrationSettingsView) {
	view.CSRFToken = middleware.CSRFToken(c)
	response.Page(c, status, RegistrationSettingsTemplate, view)
}
