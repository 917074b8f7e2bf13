package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/connexa-app/connexa-api/internal/dto"
	"github.com/connexa-app/connexa-api/internal/models"
	"github.com/connexa-app/connexa-api/internal/repository"
)

type flakyNotificationRepo struct {
	repository.NotificationRepository
	mu      sync.Mutex
	failFor uint
	created []uint
}

func (f *flakyNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.UserID == f.failFor {
		return errTest
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, notification.UserID)
	return nil
}

func TestNotificationServiceNotifyManyAttemptsEveryRecipient(t *testing.T) {
	repo := &flakyNotificationRepo{failFor: 3}
	svc := NewNotificationService(repo, 2, testLogger())

	err := svc.NotifyMany(context.Background(), []uint{1, 2, 3, 4, 5}, models.NotificationNewMessage, "title", "body", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipient 3")
	require.ElementsMatch(t, []uint{1, 2, 4, 5}, repo.created)

	require.NoError(t, svc.NotifyMany(context.Background(), nil, models.NotificationNewMessage, "title", "body", nil))
}

func TestNotificationServiceRejectsUnknownType(t *testing.T) {
	svc := NewNotificationService(&flakyNotificationRepo{}, 1, testLogger())
	err := svc.Notify(context.Background(), 1, "birthday", "title", "body", nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestNotificationServiceInbox(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, "Owner")
	member := env.seedUser(t, "Member")

	group, err := env.groupSvc.Create(ctx, owner.ID, groupRequest("Geometry", 4))
	require.NoError(t, err)
	_, err = env.groupSvc.Join(ctx, group.ID, member.ID)
	require.NoError(t, err)
	_, err = env.messageSvc.Send(ctx, group.ID, member.ID, dto.SendMessageRequest{Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, env.notifier.Notify(ctx, member.ID, models.NotificationGroupChange, "Heads up", "for member", nil))

	inbox, err := env.notifier.List(ctx, owner.ID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)
	require.Equal(t, int64(2), inbox.UnreadCount)
	require.Equal(t, models.NotificationNewMessage, inbox.Items[0].Type)
	require.Equal(t, "Geometry", inbox.Items[0].GroupName)

	byType, err := env.notifier.ListByType(ctx, owner.ID, models.NotificationNewMember, 1, 10)
	require.NoError(t, err)
	require.Len(t, byType.Items, 1)

	_, err = env.notifier.ListByType(ctx, owner.ID, "unknown", 1, 10)
	require.ErrorIs(t, err, ErrValidation)

	target := inbox.Items[1].ID
	_, err = env.notifier.MarkRead(ctx, target, member.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, env.notifier.Delete(ctx, target, member.ID), ErrNotFound)

	read, err := env.notifier.MarkRead(ctx, target, owner.ID)
	require.NoError(t, err)
	require.True(t, read.Read)

	onlyRead := true
	filtered, err := env.notifier.List(ctx, owner.ID, dto.NotificationListQuery{Read: &onlyRead})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, int64(1), filtered.UnreadCount)

	stats, err := env.notifier.Stats(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.Read)
	require.Equal(t, int64(1), stats.Unread)
	require.Equal(t, int64(0), stats.ByType[models.NotificationGroupChange])

	all, err := env.notifier.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), all.Affected)

	require.NoError(t, env.notifier.Delete(ctx, target, owner.ID))
	cleared, err := env.notifier.DeleteAll(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared.Affected)

	// the member's inbox is untouched
	memberInbox, err := env.notifier.List(ctx, member.ID, dto.NotificationListQuery{})
	require.NoError(t, err)
	require.Len(t, memberInbox.Items, 1)
}

func TestNotificationServiceSweepExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "User")

	old := models.Notification{UserID: user.ID, Type: models.NotificationGroupChange, Title: "old", Body: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	fresh := models.Notification{UserID: user.ID, Type: models.NotificationGroupChange, Title: "fresh", Body: "fresh"}
	require.NoError(t, env.db.Create(&old).Error)
	require.NoError(t, env.db.Create(&fresh).Error)

	_, err := env.notifier.SweepExpired(ctx, 0)
	require.ErrorIs(t, err, ErrValidation)

	retention := NewNotificationRetention(env.notifier, 30*24*time.Hour, testLogger())
	deleted, err := retention.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	remaining := env.notificationsFor(t, user.ID)
	require.Len(t, remaining, 1)
	require.Equal(t, "fresh", remaining[0].Title)
}

func TestNotificationRetentionSchedule(t *testing.T) {
	retention := NewNotificationRetention(&noopSweeper{}, time.Hour, testLogger())

	require.Error(t, retention.Start("not a cron expression"))
	require.NoError(t, retention.Start("@every 1h"))
	require.Error(t, retention.Start("@every 1h"))
	retention.Stop()
	retention.Stop()
}

type noopSweeper struct{}

func (noopSweeper) SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
