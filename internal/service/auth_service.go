package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/repository"
)

// PurposePasswordReset marks reset tokens so they are never accepted as access tokens.
const PurposePasswordReset = "password_reset"

// AuthConfig configures token issuance and sign-up rules.
type AuthConfig struct {
	Secret              string
	ResetSecret         string
	TokenTTL            time.Duration
	ResetTTL            time.Duration
	AllowedEmailDomains []string
}

// AuthService handles registration, login and password recovery.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, payload dto.PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, payload dto.PasswordResetConfirmRequest) error
	VerifyToken(ctx context.Context, token string) (dto.TokenVerificationResponse, error)
}

type resetClaims struct {
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fpr"`
	jwt.RegisteredClaims
}

type authService struct {
	users     repository.UserRepository
	mailer    Mailer
	ledger    TokenLedger
	cfg       AuthConfig
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAuthService constructs an auth service. ledger may be nil, in which case
// reset tokens are single-use only through the password fingerprint claim.
func NewAuthService(users repository.UserRepository, mailer Mailer, ledger TokenLedger, cfg AuthConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.ResetSecret == "" {
		cfg.ResetSecret = cfg.Secret
	}
	return &authService{
		users:     users,
		mailer:    mailer,
		ledger:    ledger,
		cfg:       cfg,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/connexa-app/connexa-api/internal/service/auth"),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, validationError(err)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if !s.emailDomainAllowed(email) {
		return dto.AuthResponse{}, newError(KindValidation, "email domain is not allowed", nil)
	}

	spanCtx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if _, err := s.users.FindByEmail(spanCtx, email); err == nil {
		return dto.AuthResponse{}, newError(KindConflict, "email already registered", nil)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, internalError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.AuthResponse{}, internalError(err)
	}

	avatar := payload.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	user := models.User{
		Name:           plainText(payload.Name),
		Email:          email,
		Course:         plainText(payload.Course),
		Period:         plainText(payload.Period),
		Interests:      datatypes.JSONSlice[string](s.cleanInterests(payload.Interests)),
		Avatar:         avatar,
		PasswordHash:   string(hash),
		EmailConfirmed: true,
	}
	if user.Name == "" || user.Course == "" || user.Period == "" {
		return dto.AuthResponse{}, newError(KindValidation, "name, course and period must contain text", nil)
	}

	if err := s.users.Create(spanCtx, &user); err != nil {
		span.RecordError(err)
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.AuthResponse{}, newError(KindConflict, "email already registered", err)
		}
		return dto.AuthResponse{}, internalError(err)
	}

	if err := s.mailer.SendWelcome(spanCtx, user); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to send welcome email")
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, validationError(err)
	}

	user, err := s.users.FindByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, newError(KindUnauthorized, "invalid email or password", nil)
		}
		return dto.AuthResponse{}, internalError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.AuthResponse{}, newError(KindUnauthorized, "invalid email or password", nil)
	}
	if !user.EmailConfirmed {
		return dto.AuthResponse{}, newError(KindUnauthorized, "email address has not been confirmed", nil)
	}

	return s.issue(user)
}

func (s *authService) RequestPasswordReset(ctx context.Context, payload dto.PasswordResetRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return validationError(err)
	}

	spanCtx, span := s.tracer.Start(ctx, "auth.request_reset")
	defer span.End()

	user, err := s.users.FindByEmail(spanCtx, payload.Email)
	if err != nil {
		return notFoundOr(err, "no account with this email")
	}

	now := s.now()
	claims := resetClaims{
		Purpose:     PurposePasswordReset,
		Fingerprint: passwordFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.ResetSecret))
	if err != nil {
		return internalError(err)
	}

	if err := s.mailer.SendPasswordReset(spanCtx, user, token); err != nil {
		span.RecordError(err)
		return internalError(err)
	}
	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, payload dto.PasswordResetConfirmRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return validationError(err)
	}

	spanCtx, span := s.tracer.Start(ctx, "auth.confirm_reset")
	defer span.End()

	invalid := newError(KindValidation, "invalid or expired reset token", nil)

	var claims resetClaims
	token, err := jwt.ParseWithClaims(payload.Token, &claims, s.keyFunc(s.cfg.ResetSecret), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Purpose != PurposePasswordReset {
		return invalid
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return invalid
	}
	user, err := s.users.FindByID(spanCtx, uint(userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		return internalError(err)
	}
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return invalid
	}

	if s.ledger != nil && claims.ID != "" {
		ttl := time.Until(claims.ExpiresAt.Time)
		fresh, err := s.ledger.Consume(spanCtx, claims.ID, ttl)
		if err != nil {
			s.logger.Warn().Err(err).Msg("reset token ledger unavailable")
		} else if !fresh {
			return invalid
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err)
	}
	if err := s.users.UpdatePassword(spanCtx, user.ID, string(hash)); err != nil {
		span.RecordError(err)
		return notFoundOr(err, "user not found")
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("password reset completed")
	return nil
}

func (s *authService) VerifyToken(ctx context.Context, tokenString string) (dto.TokenVerificationResponse, error) {
	userID, err := ParseAccessToken(s.cfg.Secret, tokenString, s.now)
	if err != nil {
		return dto.TokenVerificationResponse{Valid: false}, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenVerificationResponse{Valid: false}, nil
		}
		return dto.TokenVerificationResponse{}, internalError(err)
	}

	profile := dto.NewUserResponse(user)
	return dto.TokenVerificationResponse{Valid: true, User: &profile}, nil
}

func (s *authService) issue(user models.User) (dto.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return dto.AuthResponse{}, internalError(err)
	}

	return dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	}, nil
}

func (s *authService) keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}
}

func (s *authService) emailDomainAllowed(email string) bool {
	if len(s.cfg.AllowedEmailDomains) == 0 {
		return true
	}
	for _, domain := range s.cfg.AllowedEmailDomains {
		domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
		if domain != "" && strings.HasSuffix(email, "@"+domain) {
			return true
		}
	}
	return false
}

func (s *authService) cleanInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	seen := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		clean := plainText(interest)
		key := strings.ToLower(clean)
		if clean == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, clean)
	}
	return out
}

// ParseAccessToken validates an access token and returns its subject. Reset
// tokens are rejected even when both kinds share a secret.
func ParseAccessToken(secret, tokenString string, now func() time.Time) (uint, error) {
	if now == nil {
		now = time.Now
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}
	if purpose, ok := claims["purpose"]; ok && purpose != "" {
		return 0, errors.New("token is not an access token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return 0, errors.New("token has no subject")
	}
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("token subject is not a user id")
	}
	return uint(id), nil
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
