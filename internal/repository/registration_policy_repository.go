package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
)

const selectRegistrationPolicy = `SELECT id, allow_registration, require_confirm_email, allow_invite_requests,
invite_request_text, invite_request_question, invite_question_text, registration_closed_text,
updated_by, updated_at
FROM site_settings WHERE id = $1`

// The CHECK (id = 1) constraint on site_settings keeps the table to a single row.
const upsertRegistrationPolicy = `INSERT INTO site_settings (id, allow_registration, require_confirm_email,
allow_invite_requests, invite_request_text, invite_request_question, invite_question_text,
registration_closed_text, updated_by, updated_at)
VALUES (:id, :allow_registration, :require_confirm_email, :allow_invite_requests, :invite_request_text,
:invite_request_question, :invite_question_text, :registration_closed_text, :updated_by, :updated_at)
ON CONFLICT (id)
DO UPDATE SET allow_registration = EXCLUDED.allow_registration,
              require_confirm_email = EXCLUDED.require_confirm_email,
              allow_invite_requests = EXCLUDED.allow_invite_requests,
              invite_request_text = EXCLUDED.invite_request_text,
              invite_request_question = EXCLUDED.invite_request_question,
              invite_question_text = EXCLUDED.invite_question_text,
              registration_closed_text = EXCLUDED.registration_closed_text,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

const seedRegistrationPolicy = `INSERT INTO site_settings (id, allow_registration, require_confirm_email,
allow_invite_requests, invite_request_text, invite_request_question, invite_question_text,
registration_closed_text, updated_by, updated_at)
VALUES (:id, :allow_registration, :require_confirm_email, :allow_invite_requests, :invite_request_text,
:invite_request_question, :invite_question_text, :registration_closed_text, :updated_by, :updated_at)
ON CONFLICT (id) DO NOTHING`

const insertAuditLog = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`

// RegistrationPolicyRepository persists the singleton registration policy row.
type RegistrationPolicyRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRegistrationPolicyRepository constructs the repository. Every call is bounded by
// timeout when it is positive.
func NewRegistrationPolicyRepository(db *sqlx.DB, timeout time.Duration) *RegistrationPolicyRepository {
	return &RegistrationPolicyRepository{db: db, timeout: timeout}
}

// Get fetches the policy row. It returns sql.ErrNoRows before the row is seeded.
func (r *RegistrationPolicyRepository) Get(ctx context.Context) (*models.RegistrationPolicy, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var policy models.RegistrationPolicy
	if err := r.db.GetContext(ctx, &policy, selectRegistrationPolicy, models.SiteSettingsID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Seed inserts the default policy unless a row already exists.
func (r *RegistrationPolicyRepository) Seed(ctx context.Context, policy models.RegistrationPolicy) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	policy.ID = models.SiteSettingsID
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, seedRegistrationPolicy, policy); err != nil {
		return fmt.Errorf("seed registration policy: %w", err)
	}
	return nil
}

// Save overwrites the policy row and records the audit entry in one transaction. A zero
// UpdatedAt is stamped with the current time.
func (r *RegistrationPolicyRepository) Save(ctx context.Context, policy *models.RegistrationPolicy, audit *models.AuditLog) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	policy.ID = models.SiteSettingsID
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration policy tx: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, upsertRegistrationPolicy, policy); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save registration policy: %w", err)
	}
	if audit != nil {
		if audit.ID == "" {
			audit.ID = uuid.NewString()
		}
		if audit.CreatedAt.IsZero() {
			audit.CreatedAt = policy.UpdatedAt
		}
		if _, err := tx.NamedExecContext(ctx, insertAuditLog, audit); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create audit log: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration policy tx: %w", err)
	}
	return nil
}

func (r *RegistrationPolicyRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
