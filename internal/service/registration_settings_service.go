package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
)

type registrationPolicyRepository interface {
	Get(ctx context.Context) (*models.RegistrationPolicy, error)
	Save(ctx context.Context, policy *models.RegistrationPolicy, audit *models.AuditLog) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RequestMeta describes the client behind an admin action, for the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// RegistrationSettingsService lets administrators read and replace the registration policy.
type RegistrationSettingsService struct {
	repo      registrationPolicyRepository
	cache     cacheInvalidator
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRegistrationSettingsService constructs a RegistrationSettingsService.
func NewRegistrationSettingsService(repo registrationPolicyRepository, cache cacheInvalidator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RegistrationSettingsService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationSettingsService{repo: repo, cache: cache, validator: validate, metrics: metrics, logger: logger}
}

// Current returns the stored policy, or the install defaults before the row exists.
func (s *RegistrationSettingsService) Current(ctx context.Context, actor *models.JWTClaims) (*models.RegistrationPolicy, error) {
	if err := authorizeSettings(actor); err != nil {
		return nil, err
	}
	policy, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration settings")
	}
	return policy, nil
}

// Submit validates the whole form and, only if every field is valid, replaces the stored
// policy. A rejected form is reported through the outcome, not the error; errors are
// reserved for authorization and persistence failures.
func (s *RegistrationSettingsService) Submit(ctx context.Context, form dto.RegistrationSettingsForm, actor *models.JWTClaims, meta RequestMeta) (*dto.RegistrationSettingsOutcome, error) {
	if err := authorizeSettings(actor); err != nil {
		s.metrics.RecordSettingsSubmission(SubmissionDenied)
		return nil, err
	}

	policy := PolicyFromForm(form)

	errs, err := fieldErrors(s.validator.Struct(form))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate registration settings")
	}
	if len(errs) > 0 {
		s.metrics.RecordSettingsSubmission(SubmissionRejected)
		return &dto.RegistrationSettingsOutcome{Saved: false, Policy: policy, FieldErrors: errs}, nil
	}

	previous, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, s.persistenceFailure(actor, err)
	}

	policy.UpdatedBy = &actor.UserID
	policy.UpdatedAt = time.Now().UTC()
	audit := s.auditEntry(actor, meta, previous, &policy)

	start := time.Now()
	err = s.repo.Save(ctx, &policy, audit)
	s.metrics.ObserveDBQuery("registration_policy_save", time.Since(start))
	if err != nil {
		return nil, s.persistenceFailure(actor, err)
	}

	if s.cache != nil {
		// A stale entry expires on its own TTL.
		_ = s.cache.Invalidate(ctx, cachePatternInstance)
	}
	s.metrics.RecordSettingsSubmission(SubmissionSaved)
	s.logger.Info("registration policy updated",
		zap.String("user_id", actor.UserID),
		zap.Bool("allow_registration", policy.AllowRegistration),
		zap.Bool("allow_invite_requests", policy.AllowInviteRequests),
	)

	return &dto.RegistrationSettingsOutcome{Saved: true, Policy: policy}, nil
}

// PolicyFromForm converts a submitted form into a policy. Malformed booleans become
// false; text is kept exactly as submitted.
func PolicyFromForm(form dto.RegistrationSettingsForm) models.RegistrationPolicy {
	allow, _ := ParseFormBool(form.AllowRegistration)
	confirm, _ := ParseFormBool(form.RequireConfirmEmail)
	inviteRequests, _ := ParseFormBool(form.AllowInviteRequests)
	question, _ := ParseFormBool(form.InviteRequestQuestion)
	return models.RegistrationPolicy{
		ID:                     models.SiteSettingsID,
		AllowRegistration:      allow,
		RequireConfirmEmail:    confirm,
		AllowInviteRequests:    inviteRequests,
		InviteRequestText:      form.InviteRequestText,
		InviteRequestQuestion:  question,
		InviteQuestionText:     form.InviteQuestionText,
		RegistrationClosedText: form.RegistrationClosedText,
	}
}

func (s *RegistrationSettingsService) persistenceFailure(actor *models.JWTClaims, err error) error {
	s.metrics.RecordSettingsSubmission(SubmissionFailed)
	s.logger.Error("failed to save registration policy", zap.String("user_id", actor.UserID), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
}

func (s *RegistrationSettingsService) auditEntry(actor *models.JWTClaims, meta RequestMeta, previous, next *models.RegistrationPolicy) *models.AuditLog {
	resourceID := strconv.Itoa(models.SiteSettingsID)
	oldValues, _ := json.Marshal(previous)
	newValues, _ := json.Marshal(next)
	return &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRegistrationPolicyUpdate,
		Resource:   "site_settings",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}
}

func authorizeSettings(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Can(models.CapabilityEditInstanceSettings) {
		return appErrors.Clone(appErrors.ErrForbidden, "editing instance settings requires the admin role")
	}
	return nil
}

type policyGetter interface {
	Get(ctx context.Context) (*models.RegistrationPolicy, error)
}

// loadPolicy reads the policy row, falling back to the install defaults when it has not
// been seeded yet.
func loadPolicy(ctx context.Context, repo policyGetter, metrics *MetricsService) (*models.RegistrationPolicy, error) {
	start := time.Now()
	policy, err := repo.Get(ctx)
	metrics.ObserveDBQuery("registration_policy_get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := models.DefaultRegistrationPolicy()
			return &defaults, nil
		}
		return nil, err
	}
	return policy, nil
}
