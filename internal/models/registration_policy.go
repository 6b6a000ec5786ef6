package models

import "time"

// SiteSettingsID is the primary key of the single site_settings row.
const SiteSettingsID = 1

const (
	defaultInviteRequestText      = "If your request is approved, you will receive an email with a registration link."
	defaultInviteQuestionText     = "What is your favourite book?"
	defaultRegistrationClosedText = `We aren't taking new users at this time. You can find an open instance at <a href="https://joinbookwyrm.com/instances">joinbookwyrm.com/instances</a>.`
)

// RegistrationPolicy is the runtime-mutable sign-up policy stored in site_settings.
type RegistrationPolicy struct {
	ID                     int       `db:"id" json:"-"`
	AllowRegistration      bool      `db:"allow_registration" json:"allow_registration"`
	RequireConfirmEmail    bool      `db:"require_confirm_email" json:"require_confirm_email"`
	AllowInviteRequests    bool      `db:"allow_invite_requests" json:"allow_invite_requests"`
	InviteRequestText      string    `db:"invite_request_text" json:"invite_request_text"`
	InviteRequestQuestion  bool      `db:"invite_request_question" json:"invite_request_question"`
	InviteQuestionText     string    `db:"invite_question_text" json:"invite_question_text"`
	RegistrationClosedText string    `db:"registration_closed_text" json:"registration_closed_text"`
	UpdatedBy              *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultRegistrationPolicy returns the policy seeded at first install.
func DefaultRegistrationPolicy() RegistrationPolicy {
	return RegistrationPolicy{
		ID:                     SiteSettingsID,
		AllowRegistration:      false,
		RequireConfirmEmail:    true,
		AllowInviteRequests:    true,
		InviteRequestText:      defaultInviteRequestText,
		InviteRequestQuestion:  false,
		InviteQuestionText:     defaultInviteQuestionText,
		RegistrationClosedText: defaultRegistrationClosedText,
	}
}
