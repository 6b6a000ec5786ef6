package dto

// RegistrationMode describes how the instance currently accepts new users.
type RegistrationMode string

const (
	RegistrationModeOpen          RegistrationMode = "open"
	RegistrationModeInvite        RegistrationMode = "invite"
	RegistrationModeInviteRequest RegistrationMode = "invite_request"
	RegistrationModeClosed        RegistrationMode = "closed"
)

// RegistrationAttemptRequest describes a prospective sign-up.
type RegistrationAttemptRequest struct {
	Email      string `json:"email" validate:"required,email"`
	InviteCode string `json:"invite_code"`
	Answer     string `json:"answer"`
}

// RegistrationDecision tells the sign-up flow what to do with an attempt.
type RegistrationDecision struct {
	Mode                 RegistrationMode `json:"mode"`
	Allowed              bool             `json:"allowed"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	InviteRequestText    string           `json:"invite_request_text,omitempty"`
	InviteQuestion       string           `json:"invite_question,omitempty"`
	ClosedText           string           `json:"closed_text,omitempty"`
}

// ConfirmationRequest asks for a confirmation link to be mailed.
type ConfirmationRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required,max=150"`
	InviteCode string `json:"invite_code"`
}

// ConfirmationMail is the payload of a queued confirmation email job.
type ConfirmationMail struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ConfirmationQueued acknowledges a queued confirmation mail.
type ConfirmationQueued struct {
	JobID string `json:"job_id"`
}

// EmailConfirmed reports the address a confirmation token was issued for.
type EmailConfirmed struct {
	Email string `json:"email"`
}
