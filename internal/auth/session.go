package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vdavid/chatsync/internal/models"
)

// ErrNotAuthenticated is returned when there is no usable access token.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session holds the access token and identity of the local user.
// Tokens are supplied from outside; the session only checks that one is
// present and, for JWTs, not expired.
type Session struct {
	mu       sync.RWMutex
	token    string
	userID   string
	userName string
	now      func() time.Time
}

func NewSession(token, userID, userName string) *Session {
	return &Session{
		token:    strings.TrimSpace(token),
		userID:   userID,
		userName: userName,
		now:      time.Now,
	}
}

// Token returns the current access token or ErrNotAuthenticated.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	token := s.token
	now := s.now
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNotAuthenticated
	}

	expiresAt, ok := tokenExpiry(token)
	if ok && !now().Before(expiresAt) {
		return "", fmt.Errorf("%w: token expired at %s", ErrNotAuthenticated, expiresAt.Format(time.RFC3339))
	}

	return token, nil
}

// SetToken replaces the access token, e.g. after the host refreshed it.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// Clear drops the access token; every later Token call fails.
func (s *Session) Clear() {
	s.SetToken("")
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

// Sender describes the local user as a message author.
func (s *Session) Sender() models.Sender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Sender{ID: s.userID, Name: s.userName}
}

// tokenExpiry reads the exp claim without verifying the signature.
// The client has no key; the server stays the authority.
// Opaque (non-JWT) tokens report ok=false.
func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
