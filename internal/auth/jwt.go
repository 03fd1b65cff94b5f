package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portal-service/internal/models"
)

// Claims carries the authenticated identity embedded in session tokens.
// Role and Name travel in the token so handlers and the realtime channel
// do not need a profile lookup on every call.
type Claims struct {
	UserID int         `json:"user_id"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier with the shared signing secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// GenerateToken issues a session token for a profile. Used by operational
// tooling and tests; the portal itself does not expose a login endpoint.
func (v *Verifier) GenerateToken(profile models.Profile, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: profile.ID,
		Role:   profile.Role,
		Name:   profile.Name,
		Email:  profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// ValidateToken parses and validates a session token.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == 0 || !claims.Role.Valid() {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}
