package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/observability"
	"github.com/connexa-app/connexa-api/internal/repository"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 50
	defaultFanoutWorkers        = 8
)

// NotificationDispatcher is the subset of the notification service used by
// the membership and messaging managers.
type NotificationDispatcher interface {
	Notify(ctx context.Context, recipientID uint, kind, title, body string, groupID *uint) error
	NotifyMany(ctx context.Context, recipientIDs []uint, kind, title, body string, groupID *uint) error
}

// NotificationService dispatches notifications and serves a user's inbox.
type NotificationService interface {
	NotificationDispatcher
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error)
	ListByType(ctx context.Context, userID uint, kind string, page, pageSize int) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (dto.BulkResult, error)
	Delete(ctx context.Context, id, userID uint) error
	DeleteAll(ctx context.Context, userID uint) (dto.BulkResult, error)
	Stats(ctx context.Context, userID uint) (dto.NotificationStatsResponse, error)
	SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	workers   int
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewNotificationService constructs a notification service. workers bounds
// the number of concurrent inserts during fan-out.
func NewNotificationService(repo repository.NotificationRepository, workers int, logger zerolog.Logger) NotificationService {
	if workers <= 0 {
		workers = defaultFanoutWorkers
	}
	return &notificationService{
		repo:      repo,
		workers:   workers,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/connexa-app/connexa-api/internal/service/notification"),
		now:       time.Now,
	}
}

func (s *notificationService) Notify(ctx context.Context, recipientID uint, kind, title, body string, groupID *uint) error {
	if !models.IsValidNotificationType(kind) {
		return newError(KindValidation, fmt.Sprintf("unknown notification type %q", kind), nil)
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.Int("notification.user_id", int(recipientID)),
		attribute.String("notification.type", kind),
	))
	defer span.End()

	notification := models.Notification{
		UserID:  recipientID,
		Type:    kind,
		Title:   plainText(title),
		Body:    plainText(body),
		GroupID: groupID,
	}

	if err := s.repo.Create(spanCtx, &notification); err != nil {
		span.RecordError(err)
		observability.NotificationsFailed().WithLabelValues(kind).Inc()
		return internalError(err)
	}

	observability.NotificationsDispatched().WithLabelValues(kind).Inc()
	return nil
}

// NotifyMany inserts one notification per recipient with bounded parallelism.
// Every recipient is attempted; the returned error joins individual failures.
func (s *notificationService) NotifyMany(ctx context.Context, recipientIDs []uint, kind, title, body string, groupID *uint) error {
	if len(recipientIDs) == 0 {
		return nil
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.notify_many", trace.WithAttributes(
		attribute.Int("notification.recipients", len(recipientIDs)),
		attribute.String("notification.type", kind),
	))
	defer span.End()

	start := s.now()
	defer func() {
		observability.NotificationFanoutDuration().Observe(time.Since(start).Seconds())
	}()

	failures := make([]error, len(recipientIDs))
	var group errgroup.Group
	group.SetLimit(s.workers)
	for i, recipientID := range recipientIDs {
		i, recipientID := i, recipientID
		group.Go(func() error {
			if err := s.Notify(spanCtx, recipientID, kind, title, body, groupID); err != nil {
				failures[i] = fmt.Errorf("recipient %d: %w", recipientID, err)
			}
			return nil
		})
	}
	_ = group.Wait()

	if err := errors.Join(failures...); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	if query.Type != "" && !models.IsValidNotificationType(query.Type) {
		return dto.NotificationListResponse{}, newError(KindValidation, fmt.Sprintf("unknown notification type %q", query.Type), nil)
	}

	page := dto.NormalizePage(query.Page, query.PageSize, defaultNotificationPageSize, maxNotificationPageSize)
	items, total, err := s.repo.List(ctx, repository.NotificationFilter{
		UserID: userID,
		Read:   query.Read,
		Type:   query.Type,
		Limit:  page.PageSize,
		Offset: page.Offset(),
	})
	if err != nil {
		return dto.NotificationListResponse{}, internalError(err)
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, internalError(err)
	}

	return dto.NotificationListResponse{
		Items:       dto.NewNotificationResponseSlice(items),
		UnreadCount: unread,
		Pagination:  dto.NewPaginationMeta(page.Page, page.PageSize, total),
	}, nil
}

func (s *notificationService) ListByType(ctx context.Context, userID uint, kind string, page, pageSize int) (dto.NotificationListResponse, error) {
	if !models.IsValidNotificationType(kind) {
		return dto.NotificationListResponse{}, newError(KindValidation, fmt.Sprintf("unknown notification type %q", kind), nil)
	}
	return s.List(ctx, userID, dto.NotificationListQuery{Type: kind, Page: page, PageSize: pageSize})
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int("notification.user_id", int(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, notFoundOr(err, "notification not found")
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (dto.BulkResult, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return dto.BulkResult{}, internalError(err)
	}
	return dto.BulkResult{Affected: affected}, nil
}

func (s *notificationService) Delete(ctx context.Context, id, userID uint) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return notFoundOr(err, "notification not found")
	}
	return nil
}

func (s *notificationService) DeleteAll(ctx context.Context, userID uint) (dto.BulkResult, error) {
	affected, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return dto.BulkResult{}, internalError(err)
	}
	return dto.BulkResult{Affected: affected}, nil
}

func (s *notificationService) Stats(ctx context.Context, userID uint) (dto.NotificationStatsResponse, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return dto.NotificationStatsResponse{}, internalError(err)
	}
	return dto.NotificationStatsResponse{
		Total:  stats.Total,
		Read:   stats.Read,
		Unread: stats.Unread,
		ByType: stats.ByType,
	}, nil
}

// SweepExpired deletes every notification created before now-olderThan.
func (s *notificationService) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, newError(KindValidation, "retention window must be positive", nil)
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.sweep")
	defer span.End()

	cutoff := s.now().Add(-olderThan)
	deleted, err := s.repo.DeleteOlderThan(spanCtx, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, internalError(err)
	}

	observability.RetentionDeleted().Add(float64(deleted))
	s.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("notification retention sweep completed")
	return deleted, nil
}
