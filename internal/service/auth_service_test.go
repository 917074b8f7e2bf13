package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
)

type recordingMailer struct {
	mu       sync.Mutex
	welcomed []string
	tokens   map[string]string
	fail     bool
}

func (m *recordingMailer) SendWelcome(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomed = append(m.welcomed, user.Email)
	if m.fail {
		return errTest
	}
	return nil
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, user models.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errTest
	}
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[user.Email] = token
	return nil
}

func newAuthService(t *testing.T, env *testEnv, mailer Mailer, ledger TokenLedger, domains ...string) AuthService {
	t.Helper()
	return NewAuthService(env.users, mailer, ledger, AuthConfig{
		Secret:              "access-secret",
		ResetSecret:         "reset-secret",
		TokenTTL:            time.Hour,
		ResetTTL:            time.Hour,
		AllowedEmailDomains: domains,
	}, dto.NewValidator(), testLogger())
}

func registerRequest(email string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Name:      "Ana Souza",
		Email:     email,
		Course:    "Computer Science",
		Period:    "5",
		Password:  "Secret123",
		Interests: []string{"Go", "go", " C++ <STL> "},
	}
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{fail: true}
	svc := newAuthService(t, env, mailer, nil)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerRequest("Ana@Alunos.Unisanta.br"))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "ana@alunos.unisanta.br", resp.User.Email)
	require.Equal(t, models.DefaultAvatar, resp.User.Avatar)
	require.Equal(t, []string{"Go", "C++ <STL>"}, resp.User.Interests)
	require.True(t, resp.User.EmailConfirmed)
	require.Equal(t, []string{"ana@alunos.unisanta.br"}, mailer.welcomed)

	_, err = svc.Register(ctx, registerRequest("ana@alunos.unisanta.br"))
	require.ErrorIs(t, err, ErrConflict)

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "ANA@alunos.unisanta.br", Password: "Secret123"})
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ana@alunos.unisanta.br", Password: "Wrong1234"})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@alunos.unisanta.br", Password: "Secret123"})
	require.ErrorIs(t, err, ErrUnauthorized)

	verified, err := svc.VerifyToken(ctx, login.Token)
	require.NoError(t, err)
	require.True(t, verified.Valid)
	require.Equal(t, resp.User.ID, verified.User.ID)

	verified, err = svc.VerifyToken(ctx, "garbage")
	require.NoError(t, err)
	require.False(t, verified.Valid)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(t, env, &recordingMailer{}, nil, "alunos.unisanta.br")
	ctx := context.Background()

	weak := registerRequest("weak@alunos.unisanta.br")
	weak.Password = "password"
	_, err := svc.Register(ctx, weak)
	require.ErrorIs(t, err, ErrValidation)

	badAvatar := registerRequest("avatar@alunos.unisanta.br")
	badAvatar.Avatar = "avatar-99"
	_, err = svc.Register(ctx, badAvatar)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, registerRequest("someone@gmail.com"))
	require.ErrorIs(t, err, ErrValidation)

	chosen := registerRequest("chosen@alunos.unisanta.br")
	chosen.Avatar = "avatar-4"
	resp, err := svc.Register(ctx, chosen)
	require.NoError(t, err)
	require.Equal(t, "avatar-4", resp.User.Avatar)
}

func TestAuthServiceLoginRequiresConfirmedEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(t, env, &recordingMailer{}, nil)
	user := env.seedUser(t, "Pending")
	require.NoError(t, env.db.Model(&user).Update("email_confirmed", false).Error)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: user.Email, Password: testPassword})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthServicePasswordResetIsSingleUse(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := newAuthService(t, env, mailer, NewRedisTokenLedger(client, ""))
	ctx := context.Background()
	user := env.seedUser(t, "Reset")

	require.ErrorIs(t, svc.RequestPasswordReset(ctx, dto.PasswordResetRequest{Email: "missing@alunos.unisanta.br"}), ErrNotFound)

	require.NoError(t, svc.RequestPasswordReset(ctx, dto.PasswordResetRequest{Email: user.Email}))
	token := mailer.tokens[user.Email]
	require.NotEmpty(t, token)

	// a reset token is not an access token
	verified, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	require.False(t, verified.Valid)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, dto.PasswordResetConfirmRequest{Token: token, Password: "Fresh4567"}))
	require.ErrorIs(t, svc.ConfirmPasswordReset(ctx, dto.PasswordResetConfirmRequest{Token: token, Password: "Other4567"}), ErrValidation)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: user.Email, Password: "Fresh4567"})
	require.NoError(t, err)

	require.Len(t, server.Keys(), 1)
}

func TestAuthServicePasswordResetWithoutLedger(t *testing.T) {
	env := newTestEnv(t)
	mailer := &recordingMailer{}
	svc := newAuthService(t, env, mailer, nil)
	ctx := context.Background()
	user := env.seedUser(t, "Reset")

	require.NoError(t, svc.RequestPasswordReset(ctx, dto.PasswordResetRequest{Email: user.Email}))
	token := mailer.tokens[user.Email]

	require.ErrorIs(t, svc.ConfirmPasswordReset(ctx, dto.PasswordResetConfirmRequest{Token: "not-a-token", Password: "Fresh4567"}), ErrValidation)
	require.NoError(t, svc.ConfirmPasswordReset(ctx, dto.PasswordResetConfirmRequest{Token: token, Password: "Fresh4567"}))
	// the fingerprint no longer matches the stored hash
	require.ErrorIs(t, svc.ConfirmPasswordReset(ctx, dto.PasswordResetConfirmRequest{Token: token, Password: "Other4567"}), ErrValidation)
}

func TestAuthServiceRejectsExpiredResetToken(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(t, env, &recordingMailer{}, nil)
	user := env.seedUser(t, "Late")

	claims := resetClaims{
		Purpose:     PurposePasswordReset,
		Fingerprint: passwordFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("reset-secret"))
	require.NoError(t, err)

	err = svc.ConfirmPasswordReset(context.Background(), dto.PasswordResetConfirmRequest{Token: token, Password: "Fresh4567"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestParseAccessTokenRejectsResetPurpose(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":     "7",
		"purpose": PurposePasswordReset,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared"))
	require.NoError(t, err)

	_, err = ParseAccessToken("shared", token, nil)
	require.Error(t, err)

	delete(claims, "purpose")
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared"))
	require.NoError(t, err)

	id, err := ParseAccessToken("shared", token, nil)
	require.NoError(t, err)
	require.Equal(t, uint(7), id)
}
