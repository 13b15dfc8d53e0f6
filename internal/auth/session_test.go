package auth

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)

	t.Run("returns opaque token as is", func(t *testing.T) {
		s := NewSession("opaque-token", "user-1", "Alice")
		token, err := s.Token()
		require.NoError(t, err)
		assert.Equal(t, "opaque-token", token)
	})

	t.Run("fails without token", func(t *testing.T) {
		s := NewSession("  ", "user-1", "Alice")
		_, err := s.Token()
		assert.True(t, errors.Is(err, ErrNotAuthenticated))
	})

	t.Run("accepts unexpired JWT", func(t *testing.T) {
		jwtToken, err := tokens.CreateForUser("user-1", "Alice")
		require.NoError(t, err)

		s := NewSession(jwtToken, "user-1", "Alice")
		token, err := s.Token()
		require.NoError(t, err)
		assert.Equal(t, jwtToken, token)
	})

	t.Run("rejects expired JWT", func(t *testing.T) {
		jwtToken, err := tokens.CreateWithTTL("user-1", "Alice", -time.Minute)
		require.NoError(t, err)

		s := NewSession(jwtToken, "user-1", "Alice")
		_, err = s.Token()
		assert.True(t, errors.Is(err, ErrNotAuthenticated))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("clear and set", func(t *testing.T) {
		s := NewSession("a", "user-1", "Alice")
		s.Clear()
		_, err := s.Token()
		assert.ErrorIs(t, err, ErrNotAuthenticated)

		s.SetToken("b")
		token, err := s.Token()
		require.NoError(t, err)
		assert.Equal(t, "b", token)
	})
}

func TestSessionSender(t *testing.T) {
	s := NewSession("t", "user-1", "Alice")
	sender := s.Sender()
	assert.Equal(t, "user-1", sender.ID)
	assert.Equal(t, "Alice", sender.Name)
	assert.Equal(t, "user-1", s.UserID())
	assert.Equal(t, "Alice", s.UserName())
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := NewSession("t", "user-1", "Alice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetToken("t")
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Token()
		}()
	}
	wg.Wait()
}

func TestTokenServiceValidate(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.CreateForUser("user-2", "Bob")
	require.NoError(t, err)

	identity, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-2", Name: "Bob"}, identity)

	_, err = tokens.Validate("garbage")
	assert.Error(t, err)
}
