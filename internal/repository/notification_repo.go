package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/models"
)

// NotificationFilter narrows a recipient's inbox listing.
type NotificationFilter struct {
	UserID uint
	Read   *bool
	Type   string
	Limit  int
	Offset int
}

// NotificationStats aggregates an inbox by read state and type.
type NotificationStats struct {
	Total  int64
	Read   int64
	Unread int64
	ByType map[string]int64
}

// NotificationRepository handles persistence for notification entities.
// Every per-row operation is scoped by recipient in its lookup predicate.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
	DeleteAll(ctx context.Context, userID uint) (int64, error)
	Stats(ctx context.Context, userID uint) (NotificationStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Omit("Group").Create(notification).Error
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", filter.UserID)
	if filter.Read != nil {
		query = query.Where("read = ?", *filter.Read)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	if err := query.Preload("Group").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.Read {
		return notification, nil
	}

	if err := r.db.WithContext(ctx).Model(&notification).Update("read", true).Error; err != nil {
		return models.Notification{}, err
	}
	notification.Read = true

	return notification, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) Stats(ctx context.Context, userID uint) (NotificationStats, error) {
	var rows []struct {
		Type  string
		Read  bool
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Select("type, read, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type, read").
		Scan(&rows).Error; err != nil {
		return NotificationStats{}, err
	}

	stats := NotificationStats{ByType: make(map[string]int64, len(models.NotificationTypes))}
	for _, t := range models.NotificationTypes {
		stats.ByType[t] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByType[row.Type] += row.Count
		if row.Read {
			stats.Read += row.Count
		} else {
			stats.Unread += row.Count
		}
	}
	return stats, nil
}

func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
