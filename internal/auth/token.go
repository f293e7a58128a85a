package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourorg/asistenciacl/internal/models"
)

// DefaultTokenTTL es la vigencia de la sesión (24 horas).
const DefaultTokenTTL = 24 * time.Hour

// ErrInvalidToken indicates the token failed signature or claim validation.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims bind the identity fields the frontend reconstructs on each load.
type SessionClaims struct {
	Email       string `json:"email"`
	IsAdmin     bool   `json:"is_admin"`
	PTPVerified bool   `json:"ptp_verified"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies signed session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens creates an issuer with the provided secret and lifetime.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a session token for the validated user.
func (t *Tokens) Issue(user models.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(t.ttl)
	claims := SessionClaims{
		Email:       user.Email,
		IsAdmin:     user.IsAdmin,
		PTPVerified: user.PTPVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	return signed, expires, err
}

// Parse validates the signature and expiry and returns the embedded claims.
func (t *Tokens) Parse(signed string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
