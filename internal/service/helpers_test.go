package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/repository"
)

var errTest = errors.New("boom")

const testPassword = "Secret123"

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type testEnv struct {
	db            *gorm.DB
	users         repository.UserRepository
	groups        repository.GroupRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository

	notifier   NotificationService
	groupSvc   GroupService
	messageSvc MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceDB(t)
	env := &testEnv{
		db:            db,
		users:         repository.NewUserRepository(db),
		groups:        repository.NewGroupRepository(db),
		messages:      repository.NewMessageRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}
	env.notifier = NewNotificationService(env.notifications, 4, testLogger())
	env.groupSvc = NewGroupService(env.groups, env.users, env.notifier, DefaultGroupPolicy(), dto.NewValidator(), testLogger())
	env.messageSvc = NewMessageService(env.messages, env.groups, env.notifier, DefaultContentPolicy(), testLogger())
	return env
}

func (e *testEnv) seedUser(t *testing.T, name string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Name:           name,
		Email:          strings.ToLower(name) + "@alunos.unisanta.br",
		Course:         "Engineering",
		Period:         "3",
		Avatar:         models.DefaultAvatar,
		PasswordHash:   string(hash),
		EmailConfirmed: true,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func groupRequest(name string, capacity int) dto.CreateGroupRequest {
	return dto.CreateGroupRequest{
		Name:     name,
		Subject:  "Mathematics",
		Goal:     "Prepare together for the final exam",
		Location: models.LocationOnline,
		Capacity: capacity,
	}
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var items []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error)
	return items
}
