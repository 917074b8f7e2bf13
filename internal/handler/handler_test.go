package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/config"
	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/handler"
	"github.com/connexa-app/connexa-api/internal/middleware"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/repository"
	"github.com/connexa-app/connexa-api/internal/router"
	"github.com/connexa-app/connexa-api/internal/service"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	logger := zerolog.Nop()
	validate := dto.NewValidator()

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	messages := repository.NewMessageRepository(db)
	notifications := repository.NewNotificationRepository(db)

	notifier := service.NewNotificationService(notifications, 2, logger)
	groupSvc := service.NewGroupService(groups, users, notifier, service.DefaultGroupPolicy(), validate, logger)
	messageSvc := service.NewMessageService(messages, groups, notifier, service.DefaultContentPolicy(), logger)
	authSvc := service.NewAuthService(users, service.NewLogMailer(logger), nil, service.AuthConfig{Secret: testSecret}, validate, logger)
	userSvc := service.NewUserService(users, groups, nil, 1, validate, logger)

	cfg := config.Config{AppName: "Connexa API", AppEnv: "test", JWTSecret: testSecret}

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authSvc, logger),
		UserHandler:         handler.NewUserHandler(userSvc, logger),
		GroupHandler:        handler.NewGroupHandler(groupSvc, logger),
		MessageHandler:      handler.NewMessageHandler(messageSvc, logger),
		NotificationHandler: handler.NewNotificationHandler(notifier, logger),
		JWTMiddleware:       middleware.JWTProtected(testSecret),
		GroupAccess:         groupSvc,
	})

	return &testServer{app: app, db: db}
}

func (s *testServer) do(t *testing.T, method, target, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	return resp, decodeResponse(t, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return payload
}

// register creates an account through the API and returns its token and id.
func (s *testServer) register(t *testing.T, name string) (string, uint) {
	t.Helper()

	resp, payload := s.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Name:     name,
		Email:    strings.ToLower(name) + "@alunos.unisanta.br",
		Course:   "Computer Science",
		Period:   "4",
		Password: "Secret123",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, payload.Message)

	var auth dto.AuthResponse
	require.NoError(t, json.Unmarshal(payload.Data, &auth))
	require.NotEmpty(t, auth.Token)
	return auth.Token, auth.User.ID
}

func (s *testServer) createGroup(t *testing.T, token, name string, capacity int) dto.GroupResponse {
	t.Helper()

	resp, payload := s.do(t, http.MethodPost, "/api/v1/groups", token, dto.CreateGroupRequest{
		Name:     name,
		Subject:  "Linear Algebra",
		Goal:     "Solve the weekly exercise lists together",
		Location: models.LocationOnline,
		Capacity: capacity,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, payload.Message)

	var group dto.GroupResponse
	require.NoError(t, json.Unmarshal(payload.Data, &group))
	return group
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	token, _ := srv.register(t, "Ana")

	resp, payload := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Name:     "Ana Again",
		Email:    "ANA@alunos.unisanta.br",
		Course:   "Computer Science",
		Period:   "4",
		Password: "Secret123",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.Equal(t, "conflict", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Name:     "Weak",
		Email:    "weak@alunos.unisanta.br",
		Course:   "Computer Science",
		Period:   "4",
		Password: "password",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_failed", payload.Error)
	require.Contains(t, string(payload.Details), "password")

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ana@alunos.unisanta.br", Password: "Secret123"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, payload.Success)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ana@alunos.unisanta.br", Password: "Wrong123"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthorized", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/auth/verify-token", "", dto.VerifyTokenRequest{Token: token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var verification dto.TokenVerificationResponse
	require.NoError(t, json.Unmarshal(payload.Data, &verification))
	require.True(t, verification.Valid)
	require.NotNil(t, verification.User)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/auth/verify-token", "", dto.VerifyTokenRequest{Token: "garbage"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", dto.PasswordResetRequest{Email: "nobody@alunos.unisanta.br"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", dto.PasswordResetRequest{Email: "ana@alunos.unisanta.br"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := srv.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.False(t, payload.Success)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/notifications", "not-a-jwt", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/users/avatars", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var catalogue dto.AvatarCatalogueResponse
	require.NoError(t, json.Unmarshal(payload.Data, &catalogue))
	require.Len(t, catalogue.Avatars, len(models.Avatars))
	require.Equal(t, models.DefaultAvatar, catalogue.Default)
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token, userID := srv.register(t, "Bruno")

	resp, payload := srv.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var profile dto.UserResponse
	require.NoError(t, json.Unmarshal(payload.Data, &profile))
	require.Equal(t, userID, profile.ID)
	require.Equal(t, models.DefaultAvatar, profile.Avatar)

	resp, payload = srv.do(t, http.MethodPut, "/api/v1/users/me", token, map[string]interface{}{
		"course":    "Mechanical Engineering",
		"interests": []string{"Calculus", "Physics"},
		"avatar":    "avatar-3",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, payload.Message)
	require.NoError(t, json.Unmarshal(payload.Data, &profile))
	require.Equal(t, "Mechanical Engineering", profile.Course)
	require.Equal(t, []string{"Calculus", "Physics"}, profile.Interests)
	require.Equal(t, "avatar-3", profile.Avatar)

	resp, payload = srv.do(t, http.MethodPut, "/api/v1/users/me", token, map[string]interface{}{})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_failed", payload.Error)

	resp, payload = srv.do(t, http.MethodPut, "/api/v1/users/me", token, map[string]interface{}{"avatar": "avatar-99"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_failed", payload.Error)

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/users/me", token, dto.DeleteAccountRequest{Password: "Wrong123"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/users/me", token, dto.DeleteAccountRequest{Password: "Secret123"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGroupMembershipOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	adminToken, adminID := srv.register(t, "Carla")
	memberToken, _ := srv.register(t, "Diego")
	outsiderToken, _ := srv.register(t, "Elisa")

	group := srv.createGroup(t, adminToken, "Algebra Squad", 2)
	require.Equal(t, 1, group.ParticipantCount)
	require.Equal(t, adminID, group.CreatorID)
	base := fmt.Sprintf("/api/v1/groups/%d", group.ID)

	resp, payload := srv.do(t, http.MethodPost, base+"/join", adminToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "already_member", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, base+"/join", memberToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, payload.Message)
	var joined dto.GroupResponse
	require.NoError(t, json.Unmarshal(payload.Data, &joined))
	require.Equal(t, 2, joined.ParticipantCount)
	require.Zero(t, joined.AvailableSlots)

	resp, payload = srv.do(t, http.MethodPost, base+"/join", outsiderToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "group_full", payload.Error)

	resp, payload = srv.do(t, http.MethodGet, base+"/participants", outsiderToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", payload.Error)

	resp, payload = srv.do(t, http.MethodGet, base+"/participants", memberToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var participants []dto.ParticipantResponse
	require.NoError(t, json.Unmarshal(payload.Data, &participants))
	require.Len(t, participants, 2)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/groups/search?subject=linear&location=online", outsiderToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var results []dto.GroupResponse
	require.NoError(t, json.Unmarshal(payload.Data, &results))
	require.Empty(t, results, "full groups are not listed")
	require.Contains(t, string(payload.Meta), "pagination")

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/groups/abc", outsiderToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, base+"/leave", adminToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodDelete, base+"/leave", outsiderToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "not_member", payload.Error)

	resp, _ = srv.do(t, http.MethodDelete, base, memberToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, base, adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, base, outsiderToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/users/me/groups", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []dto.MyGroupResponse
	require.NoError(t, json.Unmarshal(payload.Data, &mine))
	require.Empty(t, mine)
}

func TestGroupCreationLimitOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.register(t, "Fabio")

	for i := 0; i < service.DefaultGroupPolicy().MaxActiveGroups; i++ {
		srv.createGroup(t, token, fmt.Sprintf("Study Group %d", i+1), 4)
	}

	resp, payload := srv.do(t, http.MethodGet, "/api/v1/groups/search?subject=LINEAR&page=1&page_size=2", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var results []dto.GroupResponse
	require.NoError(t, json.Unmarshal(payload.Data, &results))
	require.Len(t, results, 2)
	var meta struct {
		Pagination dto.PaginationMeta `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(payload.Meta, &meta))
	require.EqualValues(t, 5, meta.Pagination.TotalItems)
	require.True(t, meta.Pagination.HasNext)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/groups", token, dto.CreateGroupRequest{
		Name:     "One Too Many",
		Subject:  "Linear Algebra",
		Goal:     "Solve the weekly exercise lists together",
		Location: models.LocationOnline,
		Capacity: 4,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "limit_exceeded", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, "/api/v1/groups", token, dto.CreateGroupRequest{
		Name:     "x",
		Location: "moon",
		Capacity: 1,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "validation_failed", payload.Error)
}

func TestMessagesAndNotificationsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := srv.register(t, "Gabi")
	memberToken, memberID := srv.register(t, "Hugo")
	outsiderToken, _ := srv.register(t, "Iris")

	group := srv.createGroup(t, adminToken, "Physics Crew", 5)
	base := fmt.Sprintf("/api/v1/groups/%d", group.ID)

	resp, _ := srv.do(t, http.MethodPost, base+"/join", memberToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload := srv.do(t, http.MethodPost, base+"/messages", outsiderToken, dto.SendMessageRequest{Content: "hello"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", payload.Error)

	// membership is checked before the message lookup
	resp, payload = srv.do(t, http.MethodDelete, base+"/messages/9999", outsiderToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Equal(t, "forbidden", payload.Error)

	resp, payload = srv.do(t, http.MethodDelete, base+"/messages/9999", memberToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, base+"/messages", memberToken, dto.SendMessageRequest{Content: "this is spam"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "inappropriate_content", payload.Error)

	resp, payload = srv.do(t, http.MethodPost, base+"/messages", memberToken, dto.SendMessageRequest{Content: "See you at 7pm"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, payload.Message)
	var sent dto.MessageResponse
	require.NoError(t, json.Unmarshal(payload.Data, &sent))
	require.Equal(t, memberID, sent.AuthorID)

	resp, payload = srv.do(t, http.MethodGet, base+"/messages?page=1&page_size=10", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []dto.MessageResponse
	require.NoError(t, json.Unmarshal(payload.Data, &history))
	require.Len(t, history, 1)
	require.Equal(t, "See you at 7pm", history[0].Content)

	resp, _ = srv.do(t, http.MethodGet, base+"/messages/recent?limit=5", memberToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/notifications?read=false", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var inbox []dto.NotificationResponse
	require.NoError(t, json.Unmarshal(payload.Data, &inbox))
	require.Len(t, inbox, 2)
	var meta struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(payload.Meta, &meta))
	require.EqualValues(t, 2, meta.UnreadCount)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/notifications/types/new_message", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload.Data, &inbox))
	require.Len(t, inbox, 1)
	require.Equal(t, models.NotificationNewMessage, inbox[0].Type)

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/notifications/types/unknown", adminToken, nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", inbox[0].ID), memberToken, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", inbox[0].ID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodGet, "/api/v1/notifications/stats", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats dto.NotificationStatsResponse
	require.NoError(t, json.Unmarshal(payload.Data, &stats))
	require.EqualValues(t, 2, stats.Total)
	require.EqualValues(t, 1, stats.Unread)

	resp, payload = srv.do(t, http.MethodPatch, "/api/v1/notifications/read-all", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var bulk dto.BulkResult
	require.NoError(t, json.Unmarshal(payload.Data, &bulk))
	require.EqualValues(t, 1, bulk.Affected)

	resp, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("%s/messages/%d", base, sent.ID), outsiderToken, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("%s/messages/%d", base, sent.ID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, payload = srv.do(t, http.MethodDelete, "/api/v1/notifications", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload.Data, &bulk))
	require.EqualValues(t, 2, bulk.Affected)
}

func TestPhotoUploadWithoutStorage(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.register(t, "Joao")

	var body bytes.Buffer
	writer := newMultipartPhoto(t, &body, "me.png", []byte("\x89PNG\r\n\x1a\n0000"))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me/photo", &body)
	req.Header.Set("Content-Type", writer)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_state", decodeResponse(t, resp).Error)
}

func newMultipartPhoto(t *testing.T, body *bytes.Buffer, filename string, content []byte) string {
	t.Helper()

	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return writer.FormDataContentType()
}
