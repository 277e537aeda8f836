package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteUserAnonymizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, err := env.admin.CreateAdmin(ctx, "root@example.com", "secret123", "Root")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	target := env.mustUser(t, "frank@example.com")

	deleted, err := env.admin.DeleteUser(ctx, admin.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, "frank@example.com", deleted.OriginalEmail)
	assert.NotEqual(t, "frank@example.com", deleted.Email)

	_, err = env.user.GetUser(ctx, target.ID)
	assertStatus(t, err, http.StatusNotFound)

	_, err = env.admin.DeleteUser(ctx, admin.ID, target.ID)
	assertStatus(t, err, http.StatusBadRequest)

	// the freed address can be registered again
	env.mustUser(t, "frank@example.com")
}

func TestDeleteUserRefusesAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin, err := env.admin.CreateAdmin(ctx, "root@example.com", "secret123", "Root")
	require.NoError(t, err)
	other, err := env.admin.CreateAdmin(ctx, "ops@example.com", "secret123", "Ops")
	require.NoError(t, err)

	_, err = env.admin.DeleteUser(ctx, admin.ID, admin.ID)
	assertStatus(t, err, http.StatusForbidden)
	_, err = env.admin.DeleteUser(ctx, admin.ID, other.ID)
	assertStatus(t, err, http.StatusForbidden)
	_, err = env.admin.DeleteUser(ctx, admin.ID, "missing")
	assertStatus(t, err, http.StatusNotFound)
}

func TestListUsersAndPromote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustUser(t, "a@example.com")
	env.mustUser(t, "b@example.com")

	users, total, err := env.admin.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	promoted, err := env.admin.SetAdmin(ctx, "A@example.com", true)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	_, err = env.admin.SetAdmin(ctx, "nobody@example.com", true)
	assertStatus(t, err, http.StatusNotFound)

	_, err = env.admin.CreateAdmin(ctx, "c@example.com", "123", "")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = env.admin.CreateAdmin(ctx, "a@example.com", "secret123", "")
	assertStatus(t, err, http.StatusConflict)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.mustUser(t, "gina@example.com")
	other := env.mustUser(t, "hank@example.com")

	_, err := env.user.UpdateProfile(ctx, Actor{ID: other.ID}, user.ID, UpdateProfileInput{Name: strPtr("x")})
	assertStatus(t, err, http.StatusForbidden)

	updated, err := env.user.UpdateProfile(ctx, Actor{ID: user.ID}, user.ID, UpdateProfileInput{
		Name:     strPtr(" Gina "),
		Location: strPtr("Riverside"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Gina", updated.Name)
	assert.Equal(t, "Riverside", updated.Location)
	assert.Equal(t, "gina@example.com", updated.Email)

	_, err = env.user.UpdateProfile(ctx, Actor{ID: "admin", IsAdmin: true}, user.ID, UpdateProfileInput{Bio: strPtr("verified")})
	require.NoError(t, err)

	_, err = env.user.SellerRating(ctx, "missing")
	assertStatus(t, err, http.StatusNotFound)
}
