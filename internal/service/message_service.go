package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/observability"
	"github.com/connexa-app/connexa-api/internal/repository"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 100
	defaultRecentLimit     = 20
)

// MessageService posts, lists and removes group messages.
type MessageService interface {
	Send(ctx context.Context, groupID, userID uint, payload dto.SendMessageRequest) (dto.MessageResponse, error)
	List(ctx context.Context, groupID, userID uint, page, pageSize int) (dto.MessageListResponse, error)
	Recent(ctx context.Context, groupID, userID uint, limit int) ([]dto.MessageResponse, error)
	Delete(ctx context.Context, groupID, messageID, userID uint) error
}

type messageService struct {
	messages      repository.MessageRepository
	groups        repository.GroupRepository
	notifications NotificationDispatcher
	policy        ContentPolicy
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewMessageService constructs the messaging manager.
func NewMessageService(messages repository.MessageRepository, groups repository.GroupRepository, notifications NotificationDispatcher, policy ContentPolicy, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:      messages,
		groups:        groups,
		notifications: notifications,
		policy:        policy.normalized(),
		logger:        logger.With().Str("component", "message_service").Logger(),
		tracer:        otel.Tracer("github.com/connexa-app/connexa-api/internal/service/message"),
	}
}

func (s *messageService) Send(ctx context.Context, groupID, userID uint, payload dto.SendMessageRequest) (dto.MessageResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "messages.send", trace.WithAttributes(
		attribute.Int("message.group_id", int(groupID)),
		attribute.Int("message.author_id", int(userID)),
	))
	defer span.End()

	if err := s.requireMember(spanCtx, groupID, userID); err != nil {
		return dto.MessageResponse{}, err
	}

	group, err := s.groups.FindByID(spanCtx, groupID)
	if err != nil {
		return dto.MessageResponse{}, notFoundOr(err, "group not found")
	}
	if !group.Active {
		return dto.MessageResponse{}, newError(KindInvalidState, "group is no longer active", nil)
	}

	content := plainText(payload.Content)
	if content == "" {
		observability.MessagesRejected().WithLabelValues("empty").Inc()
		return dto.MessageResponse{}, newError(KindInappropriateContent, "message content cannot be empty", nil)
	}
	if utf8.RuneCountInString(content) > s.policy.MaxLength {
		observability.MessagesRejected().WithLabelValues("too_long").Inc()
		return dto.MessageResponse{}, newError(KindValidation, fmt.Sprintf("message must be at most %d characters", s.policy.MaxLength), nil)
	}
	if s.policy.Matches(content) {
		observability.MessagesRejected().WithLabelValues("denylist").Inc()
		return dto.MessageResponse{}, newError(KindInappropriateContent, "message contains inappropriate content", nil)
	}

	message := models.Message{
		GroupID:  groupID,
		AuthorID: userID,
		Content:  content,
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, internalError(err)
	}

	observability.MessagesSent().Inc()

	recipients, err := s.groups.MemberIDs(spanCtx, groupID, userID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("failed to resolve message recipients")
	} else {
		ref := group.ID
		title := fmt.Sprintf("New message in %s", group.Name)
		body := fmt.Sprintf("%s: %s", message.Author.Name, s.policy.Preview(content))
		if err := s.notifications.NotifyMany(spanCtx, recipients, models.NotificationNewMessage, title, body, &ref); err != nil {
			s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("message fan-out incomplete")
		}
	}

	return dto.NewMessageResponse(message), nil
}

// List returns one page of history, oldest first within the page. Page 1 holds
// the most recent messages.
func (s *messageService) List(ctx context.Context, groupID, userID uint, page, pageSize int) (dto.MessageListResponse, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return dto.MessageListResponse{}, err
	}

	req := dto.NormalizePage(page, pageSize, defaultMessagePageSize, maxMessagePageSize)
	messages, total, err := s.messages.ListByGroup(ctx, groupID, req.PageSize, req.Offset())
	if err != nil {
		return dto.MessageListResponse{}, internalError(err)
	}

	return dto.MessageListResponse{
		Items:      dto.NewMessageResponseSlice(messages),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *messageService) Recent(ctx context.Context, groupID, userID uint, limit int) ([]dto.MessageResponse, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	messages, err := s.messages.Recent(ctx, groupID, limit)
	if err != nil {
		return nil, internalError(err)
	}
	return dto.NewMessageResponseSlice(messages), nil
}

// Delete removes a message. The author and the group admin may delete it.
func (s *messageService) Delete(ctx context.Context, groupID, messageID, userID uint) error {
	spanCtx, span := s.tracer.Start(ctx, "messages.delete", trace.WithAttributes(
		attribute.Int("message.group_id", int(groupID)),
		attribute.Int("message.id", int(messageID)),
	))
	defer span.End()

	message, err := s.messages.FindInGroup(spanCtx, groupID, messageID)
	if err != nil {
		return notFoundOr(err, "message not found")
	}

	if message.AuthorID != userID {
		membership, err := s.groups.FindMembership(spanCtx, groupID, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError(err)
		}
		if err != nil || membership.Role != models.RoleAdmin {
			return newError(KindForbidden, "only the author or the group admin can delete this message", nil)
		}
	}

	if err := s.messages.Delete(spanCtx, message.ID); err != nil {
		span.RecordError(err)
		return notFoundOr(err, "message not found")
	}

	s.logger.Info().Uint("message_id", message.ID).Uint("deleted_by", userID).Msg("message deleted")
	return nil
}

func (s *messageService) requireMember(ctx context.Context, groupID, userID uint) error {
	if _, err := s.groups.FindMembership(ctx, groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindForbidden, "only group members can access messages", nil)
		}
		return internalError(err)
	}
	return nil
}
