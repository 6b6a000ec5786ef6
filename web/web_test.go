package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageStub struct {
	Title                  string
	AllowRegistration      bool
	RequireConfirmEmail    bool
	AllowInviteRequests    bool
	InviteRequestQuestion  bool
	InviteRequestText      string
	InviteQuestionText     string
	RegistrationClosedText string
	ShowInviteQuestion     bool
	Banner                 interface{}
	CSRFToken              string
	errors                 map[string]string
}

func (p pageStub) FieldError(field string) string {
	return p.errors[field]
}

func TestTemplatesRenderRegistrationPage(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "settings/registration.html", pageStub{
		Title:                  "Registration",
		AllowRegistration:      true,
		RegistrationClosedText: "<script>alert(1)</script>",
		errors:                 map[string]string{"allow_invite_requests": "Enter a valid boolean."},
	})
	require.NoError(t, err)
	html := buf.String()

	assert.Contains(t, html, `name="allow_registration" id="id_allow_registration" checked`)
	assert.NotContains(t, html, `id="id_require_confirm_email" checked`)
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, `id="error_allow_invite_requests"`)
	assert.NotContains(t, html, "invite_question_preview")
}

func TestTemplatesKeepLeadingNewlineInTextareas(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "settings/registration.html", pageStub{
		InviteRequestText:      "\nIndented request text",
		RegistrationClosedText: "\n\nClosed for now",
		CSRFToken:              "form-token",
	})
	require.NoError(t, err)
	html := buf.String()

	// Browsers drop one newline directly after <textarea>, so the template emits its own.
	assert.Contains(t, html, "id=\"id_invite_request_text\">\n\nIndented request text</textarea>")
	assert.Contains(t, html, "id=\"id_registration_closed_text\">\n\n\nClosed for now</textarea>")
	assert.Contains(t, html, `<input type="hidden" name="csrf_token" value="form-token">`)
}

func TestDict(t *testing.T) {
	values, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "two"}, values)

	_, err = dict("a")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)
}
