package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/models"
)

// MessageRepository persists group messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindInGroup(ctx context.Context, groupID, messageID uint) (models.Message, error)
	ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]models.Message, int64, error)
	Recent(ctx context.Context, groupID uint, limit int) ([]models.Message, error)
	Delete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(message).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).First(&message.Author, message.AuthorID).Error
}

func (r *messageRepository) FindInGroup(ctx context.Context, groupID, messageID uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).
		Where("id = ? AND group_id = ?", messageID, groupID).
		First(&message).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// ListByGroup pages through a group's history newest first and returns each
// page in chronological order.
func (r *messageRepository) ListByGroup(ctx context.Context, groupID uint, limit, offset int) ([]models.Message, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.Message{}).Where("group_id = ?", groupID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	if err := query.Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	reverseMessages(messages)
	return messages, total, nil
}

func (r *messageRepository) Recent(ctx context.Context, groupID uint, limit int) ([]models.Message, error) {
	messages, _, err := r.ListByGroup(ctx, groupID, limit, 0)
	return messages, err
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func reverseMessages(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
