package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type authRepoStub struct {
	users        map[string]*models.User
	tokens       map[string]*models.RefreshToken
	revokedAll   []string
	lastLoginIDs []string
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLoginIDs = append(r.lastLoginIDs, id)
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedAll = append(r.revokedAll, userID)
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range r.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *authRepoStub) {
	t.Helper()
	repo := newAuthRepoStub()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["user-1"] = &models.User{
		ID:           "user-1",
		Email:        "registrar@example.edu",
		PasswordHash: string(hash),
		FullName:     "Registrar One",
		Role:         models.RoleRegistrar,
		Active:       true,
	}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "timetable-api",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "registrar@example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleRegistrar, res.User.Role)
	assert.Contains(t, repo.lastLoginIDs, "user-1")

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "registrar@example.edu",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveUser(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	repo.users["user-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "registrar@example.edu",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "registrar@example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	// A rotated token must not be accepted twice.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "registrar@example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1"))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
