package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/observability"
	"github.com/connexa-app/connexa-api/internal/repository"
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// UserService manages the caller's own profile and account.
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, payload dto.UpdateProfileRequest) (dto.UserResponse, error)
	UploadPhoto(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.PhotoResponse, error)
	ListMyGroups(ctx context.Context, userID uint) ([]dto.MyGroupResponse, error)
	DeleteAccount(ctx context.Context, userID uint, payload dto.DeleteAccountRequest) error
	ListAvatars() dto.AvatarCatalogueResponse
}

type userService struct {
	users     repository.UserRepository
	groups    repository.GroupRepository
	storage   FileStorage
	maxSize   int64
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewUserService constructs a user service. storage may be nil when photo
// uploads are not configured.
func NewUserService(users repository.UserRepository, groups repository.GroupRepository, storage FileStorage, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) UserService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &userService{
		users:     users,
		groups:    groups,
		storage:   storage,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
		tracer:    otel.Tracer("github.com/connexa-app/connexa-api/internal/service/user"),
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, notFoundOr(err, "user not found")
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, payload dto.UpdateProfileRequest) (dto.UserResponse, error) {
	if payload.IsEmpty() {
		return dto.UserResponse{}, newError(KindValidation, "at least one field must be provided", nil)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, validationError(err)
	}

	updates := make(map[string]interface{})
	for column, value := range map[string]*string{
		"name":   payload.Name,
		"course": payload.Course,
		"period": payload.Period,
	} {
		if value == nil {
			continue
		}
		clean := plainText(*value)
		if clean == "" {
			return dto.UserResponse{}, newError(KindValidation, fmt.Sprintf("%s must contain text", column), nil)
		}
		updates[column] = clean
	}
	if payload.Interests != nil {
		interests := make([]string, 0, len(*payload.Interests))
		for _, interest := range *payload.Interests {
			if clean := plainText(interest); clean != "" {
				interests = append(interests, clean)
			}
		}
		updates["interests"] = datatypes.JSONSlice[string](interests)
	}
	if payload.Avatar != nil {
		updates["avatar"] = *payload.Avatar
		updates["photo_url"] = ""
	}

	user, err := s.users.Update(ctx, userID, updates)
	if err != nil {
		return dto.UserResponse{}, notFoundOr(err, "user not found")
	}

	s.logger.Info().Uint("user_id", userID).Int("fields", len(updates)).Msg("profile updated")
	return dto.NewUserResponse(user), nil
}

func (s *userService) UploadPhoto(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.PhotoResponse, error) {
	ctx, span := s.tracer.Start(ctx, "users.upload_photo", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	if s.storage == nil {
		observability.PhotoUploads().WithLabelValues("unavailable").Inc()
		return dto.PhotoResponse{}, newError(KindInvalidState, "photo uploads are not configured", nil)
	}
	if file == nil {
		return dto.PhotoResponse{}, newError(KindValidation, "photo file is required", nil)
	}
	if file.Size > s.maxSize {
		observability.PhotoUploads().WithLabelValues("too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.PhotoResponse{}, newError(KindTooLarge, fmt.Sprintf("photo must be at most %d MB", s.maxSize/(1024*1024)), nil)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, internalError(err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, internalError(err)
	}
	if int64(buf.Len()) > s.maxSize {
		observability.PhotoUploads().WithLabelValues("too_large").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.PhotoResponse{}, newError(KindTooLarge, fmt.Sprintf("photo must be at most %d MB", s.maxSize/(1024*1024)), nil)
	}

	mime := mimetype.Detect(buf.Bytes()).String()
	span.SetAttributes(attribute.String("upload.detected_mime", mime))
	if _, ok := allowedPhotoTypes[mime]; !ok {
		observability.PhotoUploads().WithLabelValues("rejected_type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return dto.PhotoResponse{}, newError(KindValidation, "photo must be a JPEG, PNG, GIF or WebP image", nil)
	}

	url, err := s.storage.Upload(ctx, photoName(userID, file.Filename), bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.PhotoUploads().WithLabelValues("storage_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.PhotoResponse{}, internalError(err)
	}

	if _, err := s.users.Update(ctx, userID, map[string]interface{}{"photo_url": url}); err != nil {
		span.RecordError(err)
		return dto.PhotoResponse{}, notFoundOr(err, "user not found")
	}

	observability.PhotoUploads().WithLabelValues("stored").Inc()
	span.SetStatus(codes.Ok, "stored")
	return dto.PhotoResponse{
		PhotoURL:  url,
		MimeType:  mime,
		SizeBytes: int64(buf.Len()),
	}, nil
}

func (s *userService) ListMyGroups(ctx context.Context, userID uint) ([]dto.MyGroupResponse, error) {
	memberships, err := s.groups.ListByMember(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.MyGroupResponse, 0, len(memberships))
	for _, membership := range memberships {
		items = append(items, dto.NewMyGroupResponse(membership))
	}
	return items, nil
}

// DeleteAccount removes the caller after re-checking the password.
func (s *userService) DeleteAccount(ctx context.Context, userID uint, payload dto.DeleteAccountRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return validationError(err)
	}

	ctx, span := s.tracer.Start(ctx, "users.delete_account", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
	))
	defer span.End()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return newError(KindUnauthorized, "password is incorrect", nil)
	}

	if err := s.users.DeleteCascade(ctx, userID); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(KindNotFound, "user not found", err)
		}
		return internalError(err)
	}

	s.logger.Info().Uint("user_id", userID).Msg("account deleted")
	return nil
}

func (s *userService) ListAvatars() dto.AvatarCatalogueResponse {
	avatars := make([]models.Avatar, len(models.Avatars))
	copy(avatars, models.Avatars)
	return dto.AvatarCatalogueResponse{Avatars: avatars, Default: models.DefaultAvatar}
}

func photoName(userID uint, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("user-%d-%d%s", userID, time.Now().Unix(), ext)
}
