package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the user a bearer token was issued for.
type Identity struct {
	UserID string
	Name   string
}

// TokenValidator turns a bearer token into an Identity.
type TokenValidator interface {
	Validate(token string) (Identity, error)
}

// TokenService issues and validates HS256 tokens. The in-memory chat backend
// uses it; the client itself never holds the secret.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// CreateForUser creates a token for the user using the default TTL.
func (t *TokenService) CreateForUser(userID, name string) (string, error) {
	return t.CreateWithTTL(userID, name, t.expiresIn)
}

// CreateWithTTL creates a token for the user with an explicit TTL.
// A negative TTL yields an already expired token.
func (t *TokenService) CreateWithTTL(userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate checks the signature and expiry and returns the token's identity.
func (t *TokenService) Validate(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, jwt.ErrTokenMalformed
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("token has no subject: %w", jwt.ErrTokenInvalidClaims)
	}

	name, _ := claims["name"].(string)
	return Identity{UserID: sub, Name: name}, nil
}
