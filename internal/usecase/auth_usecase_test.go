package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearbuy/internal/infrastructure/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "secret123", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsAdmin)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "another1"})
	assertStatus(t, err, http.StatusConflict)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "123"})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = env.auth.Register(ctx, RegisterInput{Email: "", Password: "secret123"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrong")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = env.auth.Login(ctx, "nobody@example.com", "secret123")
	assertStatus(t, err, http.StatusUnauthorized)

	result, err := env.auth.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := env.auth.Authenticate(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, auth.AccessToken, claims.TokenType)

	_, err = env.auth.Authenticate(result.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestRefreshTokenCarriesCurrentAdminFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.mustUser(t, "carol@example.com")

	login, err := env.auth.Login(ctx, "carol@example.com", "secret123")
	require.NoError(t, err)

	_, err = env.admin.SetAdmin(ctx, "carol@example.com", true)
	require.NoError(t, err)

	access, err := env.auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := env.auth.Authenticate(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.IsAdmin)

	_, err = env.auth.RefreshToken(ctx, login.AccessToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestRefreshRejectedAfterDeletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.mustUser(t, "dave@example.com")
	login, err := env.auth.Login(ctx, "dave@example.com", "secret123")
	require.NoError(t, err)

	_, err = env.admin.DeleteUser(ctx, "admin", user.ID)
	require.NoError(t, err)

	_, err = env.auth.RefreshToken(ctx, login.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestChangeEmailAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.mustUser(t, "erin@example.com")
	env.mustUser(t, "taken@example.com")

	_, err := env.auth.ChangeEmail(ctx, user.ID, "wrong", "new@example.com")
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = env.auth.ChangeEmail(ctx, user.ID, "secret123", "taken@example.com")
	assertStatus(t, err, http.StatusConflict)

	updated, err := env.auth.ChangeEmail(ctx, user.ID, "secret123", "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)

	assertStatus(t, env.auth.ChangePassword(ctx, user.ID, "secret123", "12"), http.StatusBadRequest)
	assertStatus(t, env.auth.ChangePassword(ctx, user.ID, "nope", "longenough"), http.StatusUnauthorized)
	require.NoError(t, env.auth.ChangePassword(ctx, user.ID, "secret123", "longenough"))

	_, err = env.auth.Login(ctx, "new@example.com", "secret123")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = env.auth.Login(ctx, "new@example.com", "longenough")
	require.NoError(t, err)
}

func TestPasswordLengthBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tooLong := strings.Repeat("p", 80)

	_, err := env.auth.Register(ctx, RegisterInput{Email: "long@example.com", Password: tooLong})
	assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	// the limit counts bytes, not characters
	_, err = env.auth.Register(ctx, RegisterInput{Email: "utf@example.com", Password: strings.Repeat("é", 40)})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.auth.Register(ctx, RegisterInput{Email: "edge@example.com", Password: strings.Repeat("p", 72)})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "edge@example.com", strings.Repeat("p", 72))
	require.NoError(t, err)

	user := env.mustUser(t, "dave@example.com")
	err = env.auth.ChangePassword(ctx, user.ID, "secret123", tooLong)
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.admin.CreateAdmin(ctx, "root@example.com", tooLong, "Root")
	assertStatus(t, err, http.StatusBadRequest)
}
