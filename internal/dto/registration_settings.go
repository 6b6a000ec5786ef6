package dto

import "github.com/noah-isme/bookwyrm-admin/internal/models"

// RegistrationSettingsForm is the raw form submitted from the registration settings page.
// Booleans arrive as checkbox strings and are coerced by the service.
type RegistrationSettingsForm struct {
	AllowRegistration      string `form:"allow_registration" validate:"formbool"`
	RequireConfirmEmail    string `form:"require_confirm_email" validate:"formbool"`
	AllowInviteRequests    string `form:"allow_invite_requests" validate:"formbool"`
	InviteRequestQuestion  string `form:"invite_request_question" validate:"formbool"`
	InviteRequestText      string `form:"invite_request_text"`
	InviteQuestionText     string `form:"invite_question_text"`
	RegistrationClosedText string `form:"registration_closed_text"`
}

// RegistrationSettingsOutcome is the result of one form submission. When Saved is false,
// FieldErrors holds one message per rejected field and nothing was persisted.
type RegistrationSettingsOutcome struct {
	Saved       bool
	Policy      models.RegistrationPolicy
	FieldErrors map[string]string
}

// BannerKind selects the banner style on the settings page.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "danger"
)

// Banner is a page-level status message.
type Banner struct {
	Kind    BannerKind
	Message string
}

// RegistrationSettingsView is the template model for the registration settings page.
type RegistrationSettingsView struct {
	Title                  string
	AllowRegistration      bool
	RequireConfirmEmail    bool
	AllowInviteRequests    bool
	InviteRequestQuestion  bool
	InviteRequestText      string
	InviteQuestionText     string
	RegistrationClosedText string
	// ShowInviteQuestion gates the question prompt preview; the text itself is always
	// editable.
	ShowInviteQuestion bool
	Errors             map[string]string
	Banner             *Banner
	CSRFToken          string
}

// HasErrors reports whether any field error is present.
func (v RegistrationSettingsView) HasErrors() bool {
	return len(v.Errors) > 0
}

// FieldError returns the error for the named form field.
func (v RegistrationSettingsView) FieldError(field string) string {
	return v.Errors[field]
}
