package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailyDuoAPI/internal/apperr"
	"dailyDuoAPI/internal/events"
	"dailyDuoAPI/internal/types/user"
)

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.CreateUser(ctx, &user.CreateUserRequest{
		Username: "  ana ",
		Email:    "ana@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, user.DefaultBio, u.Bio)
	assert.Equal(t, user.Stats{}, u.Stats)
	assert.Equal(t, []events.Type{events.UserRegistered}, env.events.Types())

	hash, err := env.store.GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)

	_, err = env.users.CreateUser(ctx, &user.CreateUserRequest{Username: "ana", Email: "x@example.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]*user.CreateUserRequest{
		"blank username": {Username: "  ", Email: "a@example.com", Password: "pw"},
		"blank email":    {Username: "a", Email: "", Password: "pw"},
		"bad email":      {Username: "a", Email: "nope", Password: "pw"},
		"blank password": {Username: "a", Email: "a@example.com"},
		"long bio":       {Username: "a", Email: "a@example.com", Password: "pw", Bio: strings.Repeat("x", MaxBioLength+1)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.users.CreateUser(context.Background(), req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestFindAndGetUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "ana")

	got, err := env.users.FindByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)

	_, err = env.users.FindByUsername(ctx, "bo")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateUserMergesOnlySuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "ana")
	env.postAt(t, ana, at(1, 9, 0))

	u, err := env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Bio: strPtr("new bio")})
	require.NoError(t, err)
	assert.Equal(t, "new bio", u.Bio)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, 1, u.Stats.TotalPosts)

	u, err = env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Username: strPtr(" anna ")})
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Username)

	u, err = env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "anna", u.Username)
}

func TestUpdateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "ana")
	env.createUser(t, "bo")

	_, err := env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Username: strPtr(" ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Email: strPtr("nope")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Bio: strPtr(strings.Repeat("é", MaxBioLength+1))})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.users.UpdateUser(ctx, ana.ID, &user.UpdateProfileRequest{Username: strPtr("bo")})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = env.users.UpdateUser(ctx, "missing", &user.UpdateProfileRequest{Bio: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Nothing was written by the failed updates.
	got, err := env.users.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)
	assert.Equal(t, user.DefaultBio, got.Bio)
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "Annabel")
	env.createUser(t, "ana")
	env.createUser(t, "bo")

	got, err := env.users.SearchUsers(ctx, "AN")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ana", got[0].Username)
	assert.Equal(t, "Annabel", got[1].Username)

	_, err = env.users.SearchUsers(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	all, err := env.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
