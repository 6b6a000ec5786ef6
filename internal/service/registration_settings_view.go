package service

import (
	"github.com/noah-isme/bookwyrm-admin/internal/dto"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
)

const (
	registrationSettingsTitle = "Registration"

	bannerSaved    = "Settings saved"
	bannerRejected = "Unable to save settings. Please correct the errors below."
	bannerFailed   = "Unable to save settings. Please try again later."
)

// BuildRegistrationSettingsView maps a policy, optional field errors and an optional banner
// to the settings page model. It has no side effects.
func BuildRegistrationSettingsView(policy models.RegistrationPolicy, errs map[string]string, banner *dto.Banner) dto.RegistrationSettingsView {
	view := dto.RegistrationSettingsView{
		Title:                  registrationSettingsTitle,
		AllowRegistration:      policy.AllowRegistration,
		RequireConfirmEmail:    policy.RequireConfirmEmail,
		AllowInviteRequests:    policy.AllowInviteRequests,
		InviteRequestQuestion:  policy.InviteRequestQuestion,
		InviteRequestText:      policy.InviteRequestText,
		InviteQuestionText:     policy.InviteQuestionText,
		RegistrationClosedText: policy.RegistrationClosedText,
		ShowInviteQuestion:     policy.InviteRequestQuestion,
		Errors:                 map[string]string{},
		Banner:                 banner,
	}
	for field, message := range errs {
		view.Errors[field] = message
	}
	return view
}

// ViewForOutcome builds the page shown after a submission.
func ViewForOutcome(outcome *dto.RegistrationSettingsOutcome) dto.RegistrationSettingsView {
	if outcome.Saved {
		return BuildRegistrationSettingsView(outcome.Policy, nil, &dto.Banner{Kind: dto.BannerSuccess, Message: bannerSaved})
	}
	return BuildRegistrationSettingsView(outcome.Policy, outcome.FieldErrors, &dto.Banner{Kind: dto.BannerError, Message: bannerRejected})
}

// ViewForFailure builds the page shown when the submission could not be stored. The form
// keeps what the administrator typed.
func ViewForFailure(form dto.RegistrationSettingsForm) dto.RegistrationSettingsView {
	return BuildRegistrationSettingsView(PolicyFromForm(form), nil, &dto.Banner{Kind: dto.BannerError, Message: bannerFailed})
}
