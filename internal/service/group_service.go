package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
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
	defaultSearchPageSize = 10
	maxSearchPageSize     = 50
)

// GroupService owns the group lifecycle and the membership roster.
type GroupService interface {
	Create(ctx context.Context, creatorID uint, payload dto.CreateGroupRequest) (dto.GroupResponse, error)
	Search(ctx context.Context, query dto.GroupSearchQuery) (dto.GroupSearchResponse, error)
	Get(ctx context.Context, groupID uint) (dto.GroupDetailResponse, error)
	Join(ctx context.Context, groupID, userID uint) (dto.GroupResponse, error)
	Leave(ctx context.Context, groupID, userID uint) error
	Delete(ctx context.Context, groupID, requesterID uint) error
	Participants(ctx context.Context, groupID uint) ([]dto.ParticipantResponse, error)
	RequireAdmin(ctx context.Context, groupID, userID uint) error
	RequireMember(ctx context.Context, groupID, userID uint) error
}

type groupService struct {
	groups        repository.GroupRepository
	users         repository.UserRepository
	notifications NotificationDispatcher
	policy        GroupPolicy
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewGroupService constructs the membership manager.
func NewGroupService(groups repository.GroupRepository, users repository.UserRepository, notifications NotificationDispatcher, policy GroupPolicy, validate *validator.Validate, logger zerolog.Logger) GroupService {
	return &groupService{
		groups:        groups,
		users:         users,
		notifications: notifications,
		policy:        policy.normalized(),
		validator:     validate,
		logger:        logger.With().Str("component", "group_service").Logger(),
		tracer:        otel.Tracer("github.com/connexa-app/connexa-api/internal/service/group"),
	}
}

func (s *groupService) Create(ctx context.Context, creatorID uint, payload dto.CreateGroupRequest) (dto.GroupResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GroupResponse{}, validationError(err)
	}

	name := plainText(payload.Name)
	subject := plainText(payload.Subject)
	goal := plainText(payload.Goal)
	if name == "" || subject == "" || goal == "" {
		return dto.GroupResponse{}, newError(KindValidation, "name, subject and goal must contain text", nil)
	}
	if payload.Capacity < s.policy.MinCapacity || payload.Capacity > s.policy.MaxCapacity {
		return dto.GroupResponse{}, newError(KindValidation, fmt.Sprintf("capacity must be between %d and %d", s.policy.MinCapacity, s.policy.MaxCapacity), nil)
	}

	spanCtx, span := s.tracer.Start(ctx, "groups.create", trace.WithAttributes(
		attribute.Int("group.creator_id", int(creatorID)),
	))
	defer span.End()

	if _, err := s.users.FindByID(spanCtx, creatorID); err != nil {
		return dto.GroupResponse{}, notFoundOr(err, "user not found")
	}

	active, err := s.groups.CountActiveByCreator(spanCtx, creatorID)
	if err != nil {
		span.RecordError(err)
		return dto.GroupResponse{}, internalError(err)
	}
	if active >= int64(s.policy.MaxActiveGroups) {
		return dto.GroupResponse{}, newError(KindLimitExceeded, fmt.Sprintf("a user may own at most %d active groups", s.policy.MaxActiveGroups), nil)
	}

	group := models.Group{
		Name:      name,
		Subject:   subject,
		Goal:      goal,
		Location:  payload.Location,
		Capacity:  payload.Capacity,
		CreatorID: creatorID,
	}
	if err := s.groups.CreateWithAdmin(spanCtx, &group); err != nil {
		span.RecordError(err)
		return dto.GroupResponse{}, internalError(err)
	}

	stored, err := s.groups.FindByID(spanCtx, group.ID)
	if err != nil {
		return dto.GroupResponse{}, internalError(err)
	}

	observability.MembershipEvents().WithLabelValues("create").Inc()
	s.logger.Info().Uint("group_id", group.ID).Uint("creator_id", creatorID).Msg("group created")

	return dto.NewGroupResponse(stored), nil
}

func (s *groupService) Search(ctx context.Context, query dto.GroupSearchQuery) (dto.GroupSearchResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.GroupSearchResponse{}, validationError(err)
	}

	page := dto.NormalizePage(query.Page, query.PageSize, defaultSearchPageSize, maxSearchPageSize)
	groups, total, err := s.groups.Search(ctx, repository.GroupSearchFilter{
		Subject:  query.Subject,
		Location: query.Location,
		Text:     query.Text,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return dto.GroupSearchResponse{}, internalError(err)
	}

	return dto.GroupSearchResponse{
		Items:      dto.NewGroupResponseSlice(groups),
		Pagination: dto.NewPaginationMeta(page.Page, page.PageSize, total),
	}, nil
}

func (s *groupService) Get(ctx context.Context, groupID uint) (dto.GroupDetailResponse, error) {
	group, err := s.groups.FindActiveByID(ctx, groupID)
	if err != nil {
		return dto.GroupDetailResponse{}, notFoundOr(err, "group not found")
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return dto.GroupDetailResponse{}, internalError(err)
	}

	return dto.GroupDetailResponse{
		GroupResponse: dto.NewGroupResponse(group),
		Participants:  dto.NewParticipantResponseSlice(members),
	}, nil
}

// Join checks existence, then capacity, then duplicate membership, in that order.
func (s *groupService) Join(ctx context.Context, groupID, userID uint) (dto.GroupResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "groups.join", trace.WithAttributes(
		attribute.Int("group.id", int(groupID)),
		attribute.Int("group.user_id", int(userID)),
	))
	defer span.End()

	group, err := s.groups.FindActiveByID(spanCtx, groupID)
	if err != nil {
		return dto.GroupResponse{}, notFoundOr(err, "group not found")
	}
	if group.ParticipantCount >= group.Capacity {
		return dto.GroupResponse{}, ErrGroupFull
	}
	if _, err := s.groups.FindMembership(spanCtx, groupID, userID); err == nil {
		return dto.GroupResponse{}, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.GroupResponse{}, internalError(err)
	}

	joiner, err := s.users.FindByID(spanCtx, userID)
	if err != nil {
		return dto.GroupResponse{}, notFoundOr(err, "user not found")
	}

	if _, err := s.groups.AddMember(spanCtx, groupID, userID); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, repository.ErrCapacityReached):
			return dto.GroupResponse{}, ErrGroupFull
		case errors.Is(err, repository.ErrDuplicate):
			return dto.GroupResponse{}, ErrAlreadyMember
		default:
			return dto.GroupResponse{}, internalError(err)
		}
	}

	observability.MembershipEvents().WithLabelValues("join").Inc()

	ref := group.ID
	body := fmt.Sprintf("%s (%s, period %s) joined %s.", joiner.Name, joiner.Course, joiner.Period, group.Name)
	if err := s.notifications.Notify(spanCtx, group.CreatorID, models.NotificationNewMember, "New member in your group", body, &ref); err != nil {
		s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("failed to notify group admin about new member")
	}

	group.ParticipantCount++
	return dto.NewGroupResponse(group), nil
}

func (s *groupService) Leave(ctx context.Context, groupID, userID uint) error {
	spanCtx, span := s.tracer.Start(ctx, "groups.leave", trace.WithAttributes(
		attribute.Int("group.id", int(groupID)),
		attribute.Int("group.user_id", int(userID)),
	))
	defer span.End()

	membership, err := s.groups.FindMembership(spanCtx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return internalError(err)
	}
	if membership.Role == models.RoleAdmin {
		return newError(KindForbidden, "the group admin cannot leave the group", nil)
	}

	if err := s.groups.RemoveMember(spanCtx, groupID, userID); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return internalError(err)
	}

	observability.MembershipEvents().WithLabelValues("leave").Inc()

	group, err := s.groups.FindByID(spanCtx, groupID)
	if err != nil || !group.Active {
		return nil
	}
	leaver, err := s.users.FindByID(spanCtx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to load leaving user for notification")
		return nil
	}

	ref := group.ID
	body := fmt.Sprintf("%s left %s.", leaver.Name, group.Name)
	if err := s.notifications.Notify(spanCtx, group.CreatorID, models.NotificationGroupChange, "A member left your group", body, &ref); err != nil {
		s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("failed to notify group admin about departure")
	}
	return nil
}

// Delete deactivates a group. Callers other than the creator get not_found so
// the existence of other users' groups is not revealed.
func (s *groupService) Delete(ctx context.Context, groupID, requesterID uint) error {
	spanCtx, span := s.tracer.Start(ctx, "groups.delete", trace.WithAttributes(
		attribute.Int("group.id", int(groupID)),
		attribute.Int("group.requester_id", int(requesterID)),
	))
	defer span.End()

	group, err := s.groups.FindActiveByID(spanCtx, groupID)
	if err != nil {
		return notFoundOr(err, "group not found")
	}
	if group.CreatorID != requesterID {
		return newError(KindNotFound, "group not found", nil)
	}

	recipients, err := s.groups.MemberIDs(spanCtx, groupID, requesterID)
	if err != nil {
		return internalError(err)
	}

	if err := s.groups.Deactivate(spanCtx, groupID, requesterID); err != nil {
		span.RecordError(err)
		return notFoundOr(err, "group not found")
	}

	observability.MembershipEvents().WithLabelValues("delete").Inc()
	s.logger.Info().Uint("group_id", groupID).Int("members_notified", len(recipients)).Msg("group deactivated")

	ref := group.ID
	body := fmt.Sprintf("The group %s was closed by its creator.", group.Name)
	if err := s.notifications.NotifyMany(spanCtx, recipients, models.NotificationGroupChange, "Group closed", body, &ref); err != nil {
		s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("group closure fan-out incomplete")
	}
	return nil
}

func (s *groupService) Participants(ctx context.Context, groupID uint) ([]dto.ParticipantResponse, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, notFoundOr(err, "group not found")
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, internalError(err)
	}
	return dto.NewParticipantResponseSlice(members), nil
}

func (s *groupService) RequireAdmin(ctx context.Context, groupID, userID uint) error {
	membership, err := s.groups.FindMembership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindForbidden, "only the group admin can do this", nil)
		}
		return internalError(err)
	}
	if membership.Role != models.RoleAdmin {
		return newError(KindForbidden, "only the group admin can do this", nil)
	}
	return nil
}

func (s *groupService) RequireMember(ctx context.Context, groupID, userID uint) error {
	if _, err := s.groups.FindMembership(ctx, groupID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindForbidden, "only group members can do this", nil)
		}
		return internalError(err)
	}
	return nil
}
