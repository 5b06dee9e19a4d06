// Package token mints and validates the HS256 bearer tokens handed to LPs and
// admins at provisioning. Tokens carry only the identity ID; the role is
// always looked up fresh so a role change or deactivation takes effect on the
// next request, not at token expiry.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "pitchfund/pkg/domain"
)

// Claims are the JWT claims for portfolio access tokens.
type Claims struct {
	IdentityID string `json:"identity_id"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// Mint creates a signed access token for the identity.
func (s *Service) Mint(identityID id.IdentityID, expiresIn time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		IdentityID: identityID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning the identity ID it names.
// Any failure (bad signature, expiry, malformed subject) is returned as an
// error; callers on the resolution path treat every error as anonymous.
func (s *Service) Validate(tokenString string) (id.IdentityID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return id.IdentityID{}, fmt.Errorf("parse access token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.IdentityID{}, fmt.Errorf("invalid token claims")
	}
	identityID, err := id.ParseIdentityID(claims.IdentityID)
	if err != nil {
		return id.IdentityID{}, fmt.Errorf("parse identity id claim: %w", err)
	}
	return identityID, nil
}
