package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/auth"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/fjod/go_shop/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(
		memory.NewUserStore(),
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTokenManager("test-secret", time.Hour),
		logger.Discard(),
	)
}

func register(name, email, password string) RegisterInput {
	return RegisterInput{Name: name, Email: email, Password: password, ConfirmPassword: password}
}

func TestRegister_Success(t *testing.T) {
	svc := newAuthService(t)

	res, err := svc.Register(context.Background(), register("Jane Doe", "Jane@Example.com", "secret1"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.True(t, res.User.IsVerified)

	claims, err := svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
		want string
	}{
		{"missing fields", RegisterInput{Email: "a@example.com"}, "Please provide all required fields"},
		{"mismatch", RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2"}, "Passwords do not match"},
		{"short password", register("A", "a@example.com", "12345"), "Password must be at least 6 characters long"},
		{"bad email", register("A", "not-an-email", "secret1"), "Please enter a valid email"},
		{"long name", register(strings.Repeat("a", 51), "a@example.com", "secret1"), "Name cannot exceed 50 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tc.want}, verr.Messages)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, register("A", "a@example.com", "secret1"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, register("B", "A@EXAMPLE.com", "secret1"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, register("A", "a@example.com", "secret1"))
	require.NoError(t, err)

	res, err := svc.Login(ctx, LoginInput{Email: "A@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMe(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, register("A", "a@example.com", "secret1"))
	require.NoError(t, err)

	u, err := svc.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = svc.Me(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureUser(ctx, "Admin User", "admin@example.com", "123456", domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureUser(ctx, "Admin User", "admin@example.com", "other", domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, LoginInput{Email: "admin@example.com", Password: "123456"})
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin())
}
