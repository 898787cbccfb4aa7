// Package grant issues short-lived signed grants for approved emergency access.
// A grant lets the responder's client refetch the disclosed slice without
// presenting the credential again.
package grant

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"lifeline/internal/emergency/models"
	dErrors "lifeline/pkg/domain-errors"
)

// Claims are the JWT claims of an access grant.
type Claims struct {
	ProfileID   string   `json:"profile_id"`
	AttemptID   string   `json:"attempt_id"`
	AccessLevel string   `json:"access_level"`
	Method      string   `json:"method"`
	Scenario    string   `json:"scenario,omitempty"`
	Fields      []string `json:"fields"`
	jwt.RegisteredClaims
}

// Service signs and validates grants with HS256.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewService(signingKey, issuer, audience string, ttl time.Duration) (*Service, error) {
	if len(signingKey) < 32 {
		return nil, errors.New("grant signing key must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}, nil
}

// Issue signs a grant for an approved attempt.
func (s *Service) Issue(attempt *models.AccessAttempt, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ProfileID:   attempt.ProfileID.String(),
		AttemptID:   attempt.ID.String(),
		AccessLevel: attempt.AccessLevel.String(),
		Method:      attempt.MethodKind.String(),
		Scenario:    string(attempt.Scenario),
		Fields:      attempt.DisclosedFields,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   attempt.ProfileID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses a grant and checks signature, audience, and expiry at now.
func (s *Service) Validate(tokenString string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "grant has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid grant")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid grant")
	}
	return claims, nil
}

// ProfileIDValue parses the profile the grant was issued for.
func (c *Claims) ProfileIDValue() (models.ProfileID, error) {
	return models.ParseProfileID(c.ProfileID)
}

// Level parses the granted access level.
func (c *Claims) Level() (models.AccessLevel, error) {
	return models.ParseAccessLevel(c.AccessLevel)
}
