package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
)

var policyColumns = []string{
	"id", "allow_registration", "require_confirm_email", "allow_invite_requests",
	"invite_request_text", "invite_request_question", "invite_question_text",
	"registration_closed_text", "updated_by", "updated_at",
}

func newPolicyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestRegistrationPolicyRepositoryGet(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, time.Second)
	rows := sqlmock.NewRows(policyColumns).
		AddRow(1, true, false, true, "Ask us", true, "Favourite book?", "Closed", "admin-1", time.Now())
	mock.ExpectQuery("SELECT id, allow_registration").
		WithArgs(models.SiteSettingsID).
		WillReturnRows(rows)

	policy, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, policy.AllowRegistration)
	assert.False(t, policy.RequireConfirmEmail)
	assert.True(t, policy.InviteRequestQuestion)
	assert.Equal(t, "Favourite book?", policy.InviteQuestionText)
	require.NotNil(t, policy.UpdatedBy)
	assert.Equal(t, "admin-1", *policy.UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPolicyRepositoryGetMissingRow(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, 0)
	mock.ExpectQuery("SELECT id, allow_registration").
		WithArgs(models.SiteSettingsID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRegistrationPolicyRepositorySeed(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, time.Second)
	defaults := models.DefaultRegistrationPolicy()
	mock.ExpectExec("ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs(1, false, true, true, defaults.InviteRequestText, false, defaults.InviteQuestionText,
			defaults.RegistrationClosedText, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Seed(context.Background(), defaults))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPolicyRepositorySaveCommitsPolicyAndAudit(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, time.Second)
	actor := "admin-1"
	policy := &models.RegistrationPolicy{
		ID:                     99,
		AllowRegistration:      true,
		RequireConfirmEmail:    true,
		InviteRequestText:      "<b>verbatim</b>",
		InviteQuestionText:     "",
		RegistrationClosedText: "closed",
		UpdatedBy:              &actor,
	}
	audit := &models.AuditLog{
		UserID:   &actor,
		Action:   models.AuditActionRegistrationPolicyUpdate,
		Resource: "site_settings",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO site_settings").
		WithArgs(1, true, true, false, "<b>verbatim</b>", false, "", "closed", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "admin-1", models.AuditActionRegistrationPolicyUpdate, "site_settings",
			nil, sqlmock.AnyArg(), sqlmock.AnyArg(), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), policy, audit))
	assert.Equal(t, models.SiteSettingsID, policy.ID)
	assert.False(t, policy.UpdatedAt.IsZero())
	assert.NotEmpty(t, audit.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPolicyRepositorySaveRollsBackOnAuditFailure(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, time.Second)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO site_settings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &models.RegistrationPolicy{}, &models.AuditLog{Action: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create audit log")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationPolicyRepositorySaveRollsBackOnUpsertFailure(t *testing.T) {
	db, mock, cleanup := newPolicyRepoMock(t)
	defer cleanup()

	repo := NewRegistrationPolicyRepository(db, time.Second)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO site_settings").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &models.RegistrationPolicy{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save registration policy")
	require.NoError(t, mock.ExpectationsWereMet())
}
