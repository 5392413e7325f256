package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/realtime"
	"github.com/kwren/taskhive-api/internal/store"
)

func newNotificationFixture(t *testing.T, users ...*domain.User) (NotificationService, *fakeNotificationStore) {
	t.Helper()

	noteStore := newFakeNotificationStore()
	userStore := newFakeUserStore(users...)

	debounce := realtime.NewDebouncer(time.Millisecond)
	t.Cleanup(debounce.Close)

	svc, err := NewNotificationService(noteStore, userStore, nil, debounce, testLogger())
	require.NoError(t, err)
	return svc, noteStore
}

func TestNotificationService_NotifyUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	user := newTestUser(t, "Alice", domain.RoleUser)
	svc, noteStore := newNotificationFixture(t, user)

	taskID := uuid.New()
	require.NoError(t, svc.NotifyUser(ctx, user.ID, "You have been assigned", domain.NotificationTaskAssigned, &taskID))

	notes := noteStore.forUser(user.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "You have been assigned", notes[0].Message)
	assert.False(t, notes[0].Read)
	require.NotNil(t, notes[0].TaskID)
	assert.Equal(t, taskID, *notes[0].TaskID)
}

func TestNotificationService_NotifyAdmins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	actor := newTestUser(t, "Root", domain.RoleAdmin)
	other := newTestUser(t, "Ops", domain.RoleAdmin)
	regular := newTestUser(t, "Bob", domain.RoleUser)
	svc, noteStore := newNotificationFixture(t, actor, other, regular)

	taskID := uuid.New()
	require.NoError(t, svc.NotifyAdmins(ctx, "Task completed", domain.NotificationTaskCompleted, &taskID, actor.ID))

	assert.Empty(t, noteStore.forUser(actor.ID), "acting admin is excluded")
	assert.Empty(t, noteStore.forUser(regular.ID), "regular users are not notified")

	notes := noteStore.forUser(other.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Task completed", notes[0].Message)
	assert.Equal(t, domain.NotificationTaskCompleted, notes[0].Type)
}

func TestNotificationService_ListForUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	user := newTestUser(t, "Alice", domain.RoleUser)
	svc, _ := newNotificationFixture(t, user)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.NotifyUser(ctx, user.ID, "message", domain.NotificationSystem, nil))
	}

	all, unread, err := svc.ListForUser(ctx, user.ID, false, 20)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, unread)

	// Mark one read; the unread filter and count follow.
	_, err = svc.MarkRead(ctx, user.ID, all[0].ID)
	require.NoError(t, err)

	unreadOnly, unread, err := svc.ListForUser(ctx, user.ID, true, 20)
	require.NoError(t, err)
	assert.Len(t, unreadOnly, 2)
	assert.Equal(t, 2, unread)
}

func TestNotificationService_MarkReadOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owner := newTestUser(t, "Alice", domain.RoleUser)
	other := newTestUser(t, "Bob", domain.RoleUser)
	svc, noteStore := newNotificationFixture(t, owner, other)

	require.NoError(t, svc.NotifyUser(ctx, owner.ID, "private", domain.NotificationSystem, nil))
	id := noteStore.forUser(owner.ID)[0].ID

	// Someone else's notification behaves like a missing one.
	_, err := svc.MarkRead(ctx, other.ID, id)
	require.ErrorIs(t, err, store.ErrNotificationNotFound)

	err = svc.Delete(ctx, other.ID, id)
	require.ErrorIs(t, err, store.ErrNotificationNotFound)

	// The owner still sees it unread.
	_, unread, err := svc.ListForUser(ctx, owner.ID, false, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	user := newTestUser(t, "Alice", domain.RoleUser)
	svc, _ := newNotificationFixture(t, user)

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.NotifyUser(ctx, user.ID, "message", domain.NotificationSystem, nil))
	}

	modified, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), modified)

	// Idempotent: nothing left to mark.
	modified, err = svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, modified)
}

func TestNotificationService_DeleteForTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	user := newTestUser(t, "Alice", domain.RoleUser)
	svc, noteStore := newNotificationFixture(t, user)

	taskID := uuid.New()
	otherTask := uuid.New()
	require.NoError(t, svc.NotifyUser(ctx, user.ID, "one", domain.NotificationTaskAssigned, &taskID))
	require.NoError(t, svc.NotifyUser(ctx, user.ID, "two", domain.NotificationTaskUpdated, &taskID))
	require.NoError(t, svc.NotifyUser(ctx, user.ID, "keep", domain.NotificationTaskAssigned, &otherTask))

	require.NoError(t, svc.DeleteForTask(ctx, taskID))

	remaining := noteStore.forUser(user.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, "keep", remaining[0].Message)
}
