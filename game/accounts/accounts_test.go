package accounts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/moodjournal/game/storage"
)

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	svc := NewService(kv)

	t.Run("new user", func(t *testing.T) {
		user, err := svc.Register(ctx, "ana", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ana", user.Username)

		raw, err := kv.Get(ctx, "users")
		require.NoError(t, err)
		var stored []User
		require.NoError(t, json.Unmarshal([]byte(raw), &stored))
		require.Len(t, stored, 1)
		assert.Equal(t, user.ID, stored[0].ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, "ana", "other")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("usernames are case sensitive", func(t *testing.T) {
		_, err := svc.Register(ctx, "Ana", "other")
		assert.NoError(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Register(ctx, "  ", "x")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Register(ctx, "bob", "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore())

	registered, err := svc.Register(ctx, "ana", "secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "ana", "secret", nil},
		{"wrong password", "ana", "nope", ErrInvalidCredentials},
		{"unknown user", "zoe", "secret", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore())

	registered, err := svc.Register(ctx, "ana", "secret")
	require.NoError(t, err)

	user, err := svc.Get(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_Theme(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemoryStore())

	dark, err := svc.Theme(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, dark)

	require.NoError(t, svc.SetTheme(ctx, "u1", true))
	dark, err = svc.Theme(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, dark)
}

func TestUser_Public(t *testing.T) {
	u := User{ID: "1", Username: "ana", Password: "secret"}
	data, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}
