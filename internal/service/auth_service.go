package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/bookwyrm-admin/internal/models"
	appErrors "github.com/noah-isme/bookwyrm-admin/pkg/errors"
)

// AuthConfig defines token signing parameters.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService issues and validates HS256 access tokens signed with SECRET_KEY.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	return &AuthService{logger: logger, config: config}
}

// ValidateToken parses a token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role in token")
	}

	return claims, nil
}

// IssueToken signs an access token for the given user. A zero ttl uses the configured expiry.
func (s *AuthService) IssueToken(userID, username string, role models.UserRole, ttl time.Duration) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("unknown role %q", role))
	}
	if ttl <= 0 {
		ttl = s.config.AccessTokenExpiry
	}
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	s.logger.Debug("access token issued", zap.String("user_id", userID), zap.String("role", string(role)))
	return signed, expiresAt, nil
}

// Audiences of single-purpose tokens. They carry no role, so ValidateToken never accepts
// them as access tokens.
const (
	AudienceConfirmEmail = "confirm-email"
	AudienceCSRF         = "csrf"

	confirmationTokenTTL = 7 * 24 * time.Hour
	defaultCSRFTokenTTL  = 12 * time.Hour
)

// IssueConfirmationToken signs a token proving ownership of email.
func (s *AuthService) IssueConfirmationToken(email string) (string, error) {
	token, _, err := s.issuePurposeToken(email, AudienceConfirmEmail, confirmationTokenTTL)
	return token, err
}

// ValidateConfirmationToken returns the email a confirmation token was issued for.
func (s *AuthService) ValidateConfirmationToken(token string) (string, error) {
	return s.parsePurposeToken(token, AudienceConfirmEmail)
}

// IssueCSRFToken signs a form token bound to userID.
func (s *AuthService) IssueCSRFToken(userID string) (string, error) {
	ttl := s.config.AccessTokenExpiry
	if ttl <= 0 {
		ttl = defaultCSRFTokenTTL
	}
	token, _, err := s.issuePurposeToken(userID, AudienceCSRF, ttl)
	return token, err
}

// ValidateCSRFToken checks that token was issued to userID.
func (s *AuthService) ValidateCSRFToken(token, userID string) error {
	subject, err := s.parsePurposeToken(token, AudienceCSRF)
	if err != nil {
		return err
	}
	if subject == "" || subject != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "form token belongs to another session")
	}
	return nil
}

func (s *AuthService) issuePurposeToken(subject, audience string, ttl time.Duration) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) parsePurposeToken(tokenString, audience string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid "+audience+" token")
	}
	return claims.Subject, nil
}
