package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/models"
)

// GroupSearchFilter narrows the open-group search. Empty fields match everything.
type GroupSearchFilter struct {
	Subject  string
	Location string
	Text     string
	Page     int
	PageSize int
}

// GroupRepository persists groups and their membership roster.
type GroupRepository interface {
	CreateWithAdmin(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id uint) (models.Group, error)
	FindActiveByID(ctx context.Context, id uint) (models.Group, error)
	Search(ctx context.Context, filter GroupSearchFilter) ([]models.Group, int64, error)
	CountActiveByCreator(ctx context.Context, creatorID uint) (int64, error)
	FindMembership(ctx context.Context, groupID, userID uint) (models.GroupMember, error)
	AddMember(ctx context.Context, groupID, userID uint) (models.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID uint) error
	Deactivate(ctx context.Context, groupID, creatorID uint) error
	ListMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
	MemberIDs(ctx context.Context, groupID, exceptUserID uint) ([]uint, error)
	ListByMember(ctx context.Context, userID uint) ([]models.GroupMember, error)
}

type groupRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGroupRepository constructs a group repository backed by GORM.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db, now: time.Now}
}

// CreateWithAdmin inserts the group and its creator's admin membership together.
func (r *groupRepository) CreateWithAdmin(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group.ParticipantCount = 1
		group.Active = true
		if err := tx.Omit("Creator").Create(group).Error; err != nil {
			return err
		}

		member := models.GroupMember{
			GroupID:  group.ID,
			UserID:   group.CreatorID,
			Role:     models.RoleAdmin,
			JoinedAt: r.now(),
		}
		if err := tx.Omit("User", "Group").Create(&member).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
}

func (r *groupRepository) FindByID(ctx context.Context, id uint) (models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Preload("Creator").First(&group, id).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *groupRepository) FindActiveByID(ctx context.Context, id uint) (models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		Where("id = ? AND active = ?", id, true).
		First(&group).Error; err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *groupRepository) Search(ctx context.Context, filter GroupSearchFilter) ([]models.Group, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("active = ?", true).
		Where("participant_count < capacity")

	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		query = query.Where("LOWER(subject) LIKE ?", "%"+strings.ToLower(subject)+"%")
	}
	if location := strings.TrimSpace(filter.Location); location != "" && location != "any" {
		query = query.Where("location = ?", location)
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(goal) LIKE ?)", like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Creator").Order("created_at DESC").Order("id DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(filter.PageSize).Offset((page - 1) * filter.PageSize)
	}

	var groups []models.Group
	if err := query.Find(&groups).Error; err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}

func (r *groupRepository) CountActiveByCreator(ctx context.Context, creatorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("creator_id = ? AND active = ?", creatorID, true).
		Count(&count).Error
	return count, err
}

func (r *groupRepository) FindMembership(ctx context.Context, groupID, userID uint) (models.GroupMember, error) {
	var member models.GroupMember
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; err != nil {
		return models.GroupMember{}, err
	}
	return member, nil
}

// AddMember inserts a plain membership and increments the counter only while
// the group is active and below capacity. ErrCapacityReached means the guard
// rejected the increment; ErrDuplicate means the membership already existed.
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID uint) (models.GroupMember, error) {
	member := models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: r.now(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Group{}).
			Where("id = ? AND active = ? AND participant_count < capacity", groupID, true).
			Update("participant_count", gorm.Expr("participant_count + 1"))
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return ErrCapacityReached
		}

		if err := tx.Omit("User", "Group").Create(&member).Error; err != nil {
			return translateError(err)
		}
		return nil
	})
	if err != nil {
		return models.GroupMember{}, err
	}

	return member, nil
}

// RemoveMember deletes a non-admin membership and decrements the counter.
func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("group_id = ? AND user_id = ? AND role <> ?", groupID, userID, models.RoleAdmin).
			Delete(&models.GroupMember{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&models.Group{}).
			Where("id = ? AND participant_count > ?", groupID, 0).
			Update("participant_count", gorm.Expr("participant_count - 1")).Error
	})
}

// Deactivate soft-deletes an active group owned by creatorID.
func (r *groupRepository) Deactivate(ctx context.Context, groupID, creatorID uint) error {
	result := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ? AND creator_id = ? AND active = ?", groupID, creatorID, true).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMembers returns the roster with the admin first, then by join time.
func (r *groupRepository) ListMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("CASE WHEN role = 'admin' THEN 0 ELSE 1 END").
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *groupRepository) MemberIDs(ctx context.Context, groupID, exceptUserID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id <> ?", groupID, exceptUserID).
		Order("id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByMember returns the memberships of userID in active groups, most recent join first.
func (r *groupRepository) ListByMember(ctx context.Context, userID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	if err := r.db.WithContext(ctx).
		Joins("JOIN study_groups ON study_groups.id = group_members.group_id").
		Preload("Group.Creator").
		Where("group_members.user_id = ? AND study_groups.active = ?", userID, true).
		Order("group_members.joined_at DESC").
		Order("group_members.id DESC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
