package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketch_club/internal/repository"
	"sketch_club/internal/utils"
)

func TestUserService(t *testing.T) {
	tokens := utils.NewTokenManager("secret", 0)
	users := NewUserService(repository.NewMemoryRepositories().User, tokens)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", user.Password)

	_, err = users.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = users.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Login(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	identity, err := users.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	claims, err := tokens.ParseToken(identity.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.False(t, claims.Anonymous)

	anon, err := users.Anonymous(ctx)
	require.NoError(t, err)
	assert.True(t, anon.Anonymous)
	assert.NotEqual(t, anon.UserID, identity.UserID)
	claims, err = tokens.ParseToken(anon.Token)
	require.NoError(t, err)
	assert.True(t, claims.Anonymous)
}
