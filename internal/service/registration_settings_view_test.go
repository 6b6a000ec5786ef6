package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
)

func TestBuildRegistrationSettingsViewMirrorsPolicy(t *testing.T) {
	policy := models.DefaultRegistrationPolicy()
	policy.InviteQuestionText = "Which book changed your mind?"

	view := BuildRegistrationSettingsView(policy, nil, nil)
	assert.Equal(t, "Registration", view.Title)
	assert.Equal(t, policy.AllowRegistration, view.AllowRegistration)
	assert.Equal(t, policy.RequireConfirmEmail, view.RequireConfirmEmail)
	assert.Equal(t, policy.AllowInviteRequests, view.AllowInviteRequests)
	assert.Equal(t, policy.InviteRequestText, view.InviteRequestText)
	assert.Equal(t, "Which book changed your mind?", view.InviteQuestionText)
	assert.Equal(t, policy.RegistrationClosedText, view.RegistrationClosedText)
	assert.False(t, view.ShowInviteQuestion)
	assert.False(t, view.HasErrors())
	assert.Nil(t, view.Banner)
}

func TestBuildRegistrationSettingsViewShowsQuestionOnlyWhenEnabled(t *testing.T) {
	policy := models.DefaultRegistrationPolicy()
	policy.InviteRequestQuestion = true
	view := BuildRegistrationSettingsView(policy, nil, nil)
	assert.True(t, view.ShowInviteQuestion)
}

func TestBuildRegistrationSettingsViewIsPure(t *testing.T) {
	policy := models.DefaultRegistrationPolicy()
	errs := map[string]string{"allow_registration": msgInvalidBoolean}
	banner := &dto.Banner{Kind: dto.BannerError, Message: bannerRejected}

	first := BuildRegistrationSettingsView(policy, errs, banner)
	second := BuildRegistrationSettingsView(policy, errs, banner)
	assert.Equal(t, first, second)

	first.Errors["extra"] = "changed"
	_, leaked := errs["extra"]
	assert.False(t, leaked)
	assert.Equal(t, msgInvalidBoolean, second.FieldError("allow_registration"))
}

func TestViewForOutcome(t *testing.T) {
	saved := ViewForOutcome(&dto.RegistrationSettingsOutcome{Saved: true, Policy: models.DefaultRegistrationPolicy()})
	require.NotNil(t, saved.Banner)
	assert.Equal(t, dto.BannerSuccess, saved.Banner.Kind)
	assert.False(t, saved.HasErrors())

	rejected := ViewForOutcome(&dto.RegistrationSettingsOutcome{
		Policy:      models.DefaultRegistrationPolicy(),
		FieldErrors: map[string]string{"require_confirm_email": msgInvalidBoolean},
	})
	require.NotNil(t, rejected.Banner)
	assert.Equal(t, dto.BannerError, rejected.Banner.Kind)
	assert.True(t, rejected.HasErrors())
	assert.Equal(t, msgInvalidBoolean, rejected.FieldError("require_confirm_email"))
}

func TestViewForFailureKeepsSubmittedText(t *testing.T) {
	form := fullForm()
	view := ViewForFailure(form)
	require.NotNil(t, view.Banner)
	assert.Equal(t, bannerFailed, view.Banner.Message)
	assert.Equal(t, form.InviteRequestText, view.InviteRequestText)
	assert.True(t, view.AllowRegistration)
}
