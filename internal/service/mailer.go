package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/connexa-app/connexa-api/internal/models"
)

// Mailer delivers account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, user models.User) error
	SendPasswordReset(ctx context.Context, user models.User, token string) error
}

// LogMailer is a basic provider that logs outgoing emails instead of sending them.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer constructs a logging mailer.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

// SendWelcome logs the welcome email.
func (l *LogMailer) SendWelcome(ctx context.Context, user models.User) error {
	l.logger.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("welcome email delivered")
	return nil
}

// SendPasswordReset logs the reset email. The token itself is only emitted at debug level.
func (l *LogMailer) SendPasswordReset(ctx context.Context, user models.User, token string) error {
	l.logger.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("password reset email delivered")
	l.logger.Debug().Uint("user_id", user.ID).Str("reset_token", token).Msg("password reset token issued")
	return nil
}
