package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginErr     error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return m.lastLoginErr
}

func newAuthServiceForTest(repo authUserRepository) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "sma-roadmap-api",
	})
}

func activeUser(t *testing.T, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "123", Email: "teacher@example.com", FullName: "Ana", PasswordHash: string(hash), Active: true, Role: models.RoleTeacher}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(t, "password"), lastLoginErr: errors.New("db busy")}
	svc := newAuthServiceForTest(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password"})
	require.NoError(t, err, "a failed last-login update does not block login")
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, "sma-roadmap-api", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	inactive := activeUser(t, "password")
	inactive.Active = false

	tests := []struct {
		name string
		repo *mockAuthRepo
		req  models.LoginRequest
		code string
	}{
		{"invalid payload", &mockAuthRepo{}, models.LoginRequest{Email: "nope"}, appErrors.ErrValidation.Code},
		{"unknown user", &mockAuthRepo{}, models.LoginRequest{Email: "x@example.com", Password: "p"}, appErrors.ErrInvalidCredentials.Code},
		{"inactive", &mockAuthRepo{userByEmail: inactive}, models.LoginRequest{Email: "teacher@example.com", Password: "password"}, appErrors.ErrInactiveAccount.Code},
		{"wrong password", &mockAuthRepo{userByEmail: activeUser(t, "password")}, models.LoginRequest{Email: "teacher@example.com", Password: "other"}, appErrors.ErrInvalidCredentials.Code},
		{"repository error", &mockAuthRepo{findByEmailErr: errors.New("down")}, models.LoginRequest{Email: "teacher@example.com", Password: "password"}, appErrors.ErrInternal.Code},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newAuthServiceForTest(tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestValidateTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{})
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	issued := time.Now().Add(-2 * time.Hour)
	token, err := svc.generateAccessToken(user, issued)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	fresh, err := other.generateAccessToken(user, time.Now())
	require.NoError(t, err)
	_, err = svc.ValidateToken(fresh)
	require.Error(t, err)
}
