package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookwyrm-admin/internal/middleware"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	"github.com/noah-isme/bookwyrm-admin/internal/service"
	"github.com/noah-isme/bookwyrm-admin/web"
)

type memoryPolicyRepo struct {
	policy  *models.RegistrationPolicy
	saveErr error
	saves   int
}

func (r *memoryPolicyRepo) Get(ctx context.Context) (*models.RegistrationPolicy, error) {
	if r.policy == nil {
		return nil, sql.ErrNoRows
	}
	copied := *r.policy
	return &copied, nil
}

func (r *memoryPolicyRepo) Save(ctx context.Context, policy *models.RegistrationPolicy, audit *models.AuditLog) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	stored := *policy
	r.policy = &stored
	return nil
}

func newSettingsRouter(t *testing.T, repo *memoryPolicyRepo, claims *models.JWTClaims) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmpl, err := web.Templates()
	require.NoError(t, err)

	svc := service.NewRegistrationSettingsService(repo, nil, nil, service.NewMetricsService(), nil)
	h := NewSettingsHandler(svc, nil)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	r.GET("/settings/registration", h.Show)
	r.POST("/settings/registration", h.Submit)
	return r
}

func postSettings(r *gin.Engine, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/settings/registration", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getSettings(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings/registration", nil))
	return w
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Username: "mouse", Role: models.RoleAdmin}
}

func TestSettingsHandlerShowsDefaultsBeforeSeed(t *testing.T) {
	r := newSettingsRouter(t, &memoryPolicyRepo{}, adminClaims())

	w := getSettings(r)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Registration | Administration</title>")
	assert.Contains(t, body, `name="allow_invite_requests" id="id_allow_invite_requests" checked`)
	assert.NotContains(t, body, `name="allow_registration" id="id_allow_registration" checked`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSettingsHandlerRoundTrip(t *testing.T) {
	repo := &memoryPolicyRepo{}
	r := newSettingsRouter(t, repo, adminClaims())

	w := postSettings(r, url.Values{
		"allow_registration":       {"on"},
		"require_confirm_email":    {"on"},
		"invite_request_question":  {"on"},
		"invite_request_text":      {"Tell us about yourself"},
		"invite_question_text":     {"Favourite book?"},
		"registration_closed_text": {"Closed"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Settings saved")

	require.NotNil(t, repo.policy)
	assert.True(t, repo.policy.AllowRegistration)
	assert.False(t, repo.policy.AllowInviteRequests)
	assert.Equal(t, "admin-1", *repo.policy.UpdatedBy)

	page := getSettings(r).Body.String()
	assert.Contains(t, page, `name="allow_registration" id="id_allow_registration" checked`)
	assert.NotContains(t, page, `name="allow_invite_requests" id="id_allow_invite_requests" checked`)
	assert.Contains(t, page, `id="invite_question_preview"`)
	assert.Contains(t, page, `value="Favourite book?"`)
}

func TestSettingsHandlerOpensClosedInstance(t *testing.T) {
	closed := models.DefaultRegistrationPolicy()
	repo := &memoryPolicyRepo{policy: &closed}
	r := newSettingsRouter(t, repo, adminClaims())

	w := postSettings(r, url.Values{
		"allow_registration":       {"on"},
		"registration_closed_text": {closed.RegistrationClosedText},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="notification is-success"`)
	assert.True(t, repo.policy.AllowRegistration)
}

func TestSettingsHandlerAcceptsEmptyQuestionText(t *testing.T) {
	repo := &memoryPolicyRepo{}
	r := newSettingsRouter(t, repo, adminClaims())

	w := postSettings(r, url.Values{
		"invite_request_question": {"on"},
		"invite_question_text":    {""},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.policy.InviteRequestQuestion)
	assert.Empty(t, repo.policy.InviteQuestionText)
}

func TestSettingsHandlerRejectsMalformedBoolean(t *testing.T) {
	previous := models.DefaultRegistrationPolicy()
	repo := &memoryPolicyRepo{policy: &previous}
	r := newSettingsRouter(t, repo, adminClaims())

	w := postSettings(r, url.Values{
		"allow_registration":  {"definitely"},
		"invite_request_text": {"kept"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `id="error_allow_registration"`)
	assert.Contains(t, body, "Enter a valid boolean.")
	assert.Contains(t, body, ">\nkept</textarea>")
	assert.Equal(t, 0, repo.saves)
	assert.Equal(t, previous, *repo.policy)
}

func TestSettingsHandlerPersistenceFailure(t *testing.T) {
	repo := &memoryPolicyRepo{saveErr: errors.New("connection reset")}
	r := newSettingsRouter(t, repo, adminClaims())

	w := postSettings(r, url.Values{
		"allow_registration":  {"on"},
		"invite_request_text": {"typed by admin"},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please try again later")
	assert.Contains(t, body, ">\ntyped by admin</textarea>")
	assert.Nil(t, repo.policy)
}

func TestSettingsHandlerRequiresAdmin(t *testing.T) {
	previous := models.DefaultRegistrationPolicy()
	repo := &memoryPolicyRepo{policy: &previous}
	moderator := &models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator}
	r := newSettingsRouter(t, repo, moderator)

	w := postSettings(r, url.Values{"allow_registration": {"on"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, repo.saves)
	assert.False(t, repo.policy.AllowRegistration)

	assert.Equal(t, http.StatusForbidden, getSettings(r).Code)

	anonymous := newSettingsRouter(t, repo, nil)
	assert.Equal(t, http.StatusUnauthorized, postSettings(anonymous, url.Values{}).Code)
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func newGuardedSettingsRouter(t *testing.T, repo *memoryPolicyRepo) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmpl, err := web.Templates()
	require.NoError(t, err)

	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret", Issuer: "books.example.net"})
	access, _, err := auth.IssueToken("admin-1", "mouse", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	h := NewSettingsHandler(service.NewRegistrationSettingsService(repo, nil, nil, service.NewMetricsService(), nil), nil)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	settings := r.Group("/settings")
	settings.Use(
		middleware.JWT(auth),
		middleware.RequireCapability(models.CapabilityEditInstanceSettings),
		middleware.CSRF(auth, []string{"https://books.example.net"}),
	)
	settings.GET("/registration", h.Show)
	settings.POST("/registration", h.Submit)
	return r, access
}

func cookieRequest(method, access string, values url.Values, origin string) *http.Request {
	req := httptest.NewRequest(method, "/settings/registration", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: access})
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestSettingsHandlerRejectsCrossOriginPost(t *testing.T) {
	previous := models.DefaultRegistrationPolicy()
	repo := &memoryPolicyRepo{policy: &previous}
	r, access := newGuardedSettingsRouter(t, repo)

	page := httptest.NewRecorder()
	r.ServeHTTP(page, cookieRequest(http.MethodGet, access, nil, ""))
	require.Equal(t, http.StatusOK, page.Code)
	match := csrfInput.FindStringSubmatch(page.Body.String())
	require.Len(t, match, 2)

	forged := url.Values{"allow_registration": {"on"}, middleware.CSRFFormField: {match[1]}}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, cookieRequest(http.MethodPost, access, forged, "https://evil.example.com"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, cookieRequest(http.MethodPost, access, url.Values{"allow_registration": {"on"}}, "https://books.example.net"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, 0, repo.saves)
	assert.Equal(t, previous, *repo.policy)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, cookieRequest(http.MethodPost, access, forged, "https://books.example.net"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.policy.AllowRegistration)
	assert.Regexp(t, csrfInput, w.Body.String())
}
