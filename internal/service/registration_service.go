package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
	"github.com/noah-isme/bookwyrm-admin/pkg/jobs"
)

// JobTypeConfirmationEmail identifies queued confirmation mail.
const JobTypeConfirmationEmail = "send_confirmation_email"

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type confirmationTokens interface {
	IssueConfirmationToken(email string) (string, error)
	ValidateConfirmationToken(token string) (string, error)
}

// RegistrationService answers how the instance treats a sign-up right now. It always
// reads the stored policy so an admin change applies to the very next attempt.
type RegistrationService struct {
	repo      policyGetter
	queue     jobEnqueuer
	tokens    confirmationTokens
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(repo policyGetter, queue jobEnqueuer, tokens confirmationTokens, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, queue: queue, tokens: tokens, validator: validate, metrics: metrics, logger: logger}
}

// Evaluate decides the registration mode for an attempt.
func (s *RegistrationService) Evaluate(ctx context.Context, req dto.RegistrationAttemptRequest) (*dto.RegistrationDecision, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	policy, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration policy")
	}

	decision := decide(policy, req.InviteCode)
	s.metrics.RecordRegistrationDecision(string(decision.Mode))
	return decision, nil
}

// RequestConfirmation queues a confirmation email for an accepted registration.
func (s *RegistrationService) RequestConfirmation(ctx context.Context, req dto.ConfirmationRequest) (*dto.ConfirmationQueued, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	policy, err := loadPolicy(ctx, s.repo, s.metrics)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration policy")
	}
	decision := decide(policy, req.InviteCode)
	if !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration is not open on this instance")
	}
	if !decision.RequiresConfirmation {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "email confirmation is not required on this instance")
	}

	token, err := s.tokens.IssueConfirmationToken(req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign confirmation token")
	}
	job, err := jobs.NewJob(JobTypeConfirmationEmail, dto.ConfirmationMail{
		Email:    req.Email,
		Username: req.Username,
		Token:    token,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build confirmation job")
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("failed to enqueue confirmation email", zap.String("job_id", job.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "could not queue confirmation email")
	}

	return &dto.ConfirmationQueued{JobID: job.ID}, nil
}

// ConfirmEmail resolves a mailed confirmation token to its address. Activating the
// account is left to the sign-up flow.
func (s *RegistrationService) ConfirmEmail(token string) (*dto.EmailConfirmed, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "confirmation token is required")
	}
	email, err := s.tokens.ValidateConfirmationToken(token)
	if err != nil {
		return nil, err
	}
	return &dto.EmailConfirmed{Email: email}, nil
}

func decide(policy *models.RegistrationPolicy, inviteCode string) *dto.RegistrationDecision {
	decision := &dto.RegistrationDecision{RequiresConfirmation: policy.RequireConfirmEmail}
	switch {
	case policy.AllowRegistration:
		decision.Mode = dto.RegistrationModeOpen
		decision.Allowed = true
	case inviteCode != "":
		// The invite itself is redeemed by the sign-up flow.
		decision.Mode = dto.RegistrationModeInvite
		decision.Allowed = true
	case policy.AllowInviteRequests:
		decision.Mode = dto.RegistrationModeInviteRequest
		decision.InviteRequestText = policy.InviteRequestText
		if policy.InviteRequestQuestion {
			decision.InviteQuestion = policy.InviteQuestionText
		}
	default:
		decision.Mode = dto.RegistrationModeClosed
		decision.ClosedText = policy.RegistrationClosedText
	}
	if !decision.Allowed {
		decision.RequiresConfirmation = false
	}
	return decision
}

func (s *RegistrationService) validate(req interface{}) error {
	errs, err := fieldErrors(s.validator.Struct(req))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "invalid payload")
	}
	if len(errs) > 0 {
		return appErrors.WithDetails(appErrors.ErrValidation, errs)
	}
	return nil
}
