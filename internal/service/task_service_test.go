package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/realtime"
	"github.com/kwren/taskhive-api/internal/store"
)

type taskFixture struct {
	users *fakeUserStore
	tasks *fakeTaskStore
	notes *fakeNotificationStore
	svc   TaskService
}

func newTaskFixture(t *testing.T, users ...*domain.User) *taskFixture {
	t.Helper()

	userStore := newFakeUserStore(users...)
	taskStore := newFakeTaskStore()
	noteStore := newFakeNotificationStore()

	debounce := realtime.NewDebouncer(time.Millisecond)
	t.Cleanup(debounce.Close)

	notifier, err := NewNotificationService(noteStore, userStore, nil, debounce, testLogger())
	require.NoError(t, err)

	svc, err := NewTaskService(taskStore, userStore, notifier, nil, debounce, testLogger())
	require.NoError(t, err)

	return &taskFixture{users: userStore, tasks: taskStore, notes: noteStore, svc: svc}
}

func newTestUser(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	user, err := domain.NewUser(name, uuid.NewString()+"@example.com", role)
	require.NoError(t, err)
	return user
}

func validCreateInput(assignee uuid.UUID) CreateTaskInput {
	return CreateTaskInput{
		Title:        "Ship the release",
		Description:  "Cut the tag and push the artifacts",
		DueDate:      time.Now().UTC().Add(48 * time.Hour),
		Priority:     domain.PriorityHigh,
		AssignedToID: assignee,
	}
}

func TestTaskService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates task and notifies assignee", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)

		task, resolved, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)
		assert.Equal(t, "Ship the release", task.Title)
		assert.Equal(t, domain.StatusToDo, task.Status)
		assert.Equal(t, creator.ID, task.CreatorID)
		assert.Equal(t, assignee.ID, task.AssignedToID)
		assert.Equal(t, assignee.ID, resolved.ID)

		notes := f.notes.forUser(assignee.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, `Alice assigned you a new task: "Ship the release"`, notes[0].Message)
		assert.Equal(t, domain.NotificationTaskAssigned, notes[0].Type)
		require.NotNil(t, notes[0].TaskID)
		assert.Equal(t, task.ID, *notes[0].TaskID)
		assert.False(t, notes[0].Read)
	})

	t.Run("self-assignment by regular user skips notification", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		f := newTaskFixture(t, creator)

		task, _, err := f.svc.Create(ctx, creator, validCreateInput(creator.ID))
		require.NoError(t, err)
		assert.Equal(t, creator.ID, task.AssignedToID)
		assert.Empty(t, f.notes.forUser(creator.ID))
	})

	t.Run("admin cannot self-assign", func(t *testing.T) {
		t.Parallel()
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		f := newTaskFixture(t, admin)

		_, _, err := f.svc.Create(ctx, admin, validCreateInput(admin.ID))
		require.ErrorIs(t, err, ErrSelfAssign)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		f := newTaskFixture(t, creator)

		_, _, err := f.svc.Create(ctx, creator, validCreateInput(uuid.New()))
		require.ErrorIs(t, err, ErrAssigneeNotFound)
	})

	t.Run("duplicate active task is rejected with the existing task", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)

		first, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		in := validCreateInput(assignee.ID)
		in.Title = "  ship THE release " // same title modulo case and spacing
		_, _, err = f.svc.Create(ctx, creator, in)
		require.ErrorIs(t, err, ErrDuplicateTask)

		var dup *DuplicateTaskError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, first.ID, dup.Existing.ID)
	})

	t.Run("completed task does not block a new one with the same title", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)

		first, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		_, _, err = f.svc.UpdateStatus(ctx, assignee, first.ID, domain.StatusCompleted)
		require.NoError(t, err)

		_, _, err = f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)
	})
}

func TestTaskService_UpdateStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*taskFixture, *domain.User, *domain.User, *domain.Task) {
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)
		return f, creator, assignee, task
	}

	t.Run("assignee transitions status and creator is notified", func(t *testing.T) {
		t.Parallel()
		f, creator, assignee, task := setup(t)

		updated, old, err := f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusToDo, old)
		assert.Equal(t, domain.StatusInProgress, updated.Status)

		notes := f.notes.forUser(creator.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, `Bob started working on task: "Ship the release"`, notes[0].Message)
		assert.Equal(t, domain.NotificationTaskStatusChanged, notes[0].Type)
	})

	t.Run("review and generic transition messages", func(t *testing.T) {
		t.Parallel()
		f, creator, assignee, task := setup(t)

		_, _, err := f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusReview)
		require.NoError(t, err)
		_, _, err = f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusToDo)
		require.NoError(t, err)

		notes := f.notes.forUser(creator.ID)
		require.Len(t, notes, 2)
		messages := []string{notes[0].Message, notes[1].Message}
		assert.Contains(t, messages, `Bob sent task "Ship the release" for review`)
		assert.Contains(t, messages, `Bob changed task "Ship the release" status from Review to To Do`)
	})

	t.Run("creator cannot change status", func(t *testing.T) {
		t.Parallel()
		f, creator, _, task := setup(t)

		_, _, err := f.svc.UpdateStatus(ctx, creator, task.ID, domain.StatusInProgress)
		require.ErrorIs(t, err, ErrNotAssignee)
	})

	t.Run("admin cannot change status unless assigned", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		f := newTaskFixture(t, creator, assignee, admin)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		_, _, err = f.svc.UpdateStatus(ctx, admin, task.ID, domain.StatusInProgress)
		require.ErrorIs(t, err, ErrNotAssignee)
	})

	t.Run("invalid status value", func(t *testing.T) {
		t.Parallel()
		f, _, assignee, task := setup(t)

		_, _, err := f.svc.UpdateStatus(ctx, assignee, task.ID, domain.Status("Done"))
		require.ErrorIs(t, err, domain.ErrInvalidStatus)

		// Cancelled is terminal-only and never settable through the API.
		_, _, err = f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusCancelled)
		require.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("completion notifies admins except the actor", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		other := newTestUser(t, "Ops", domain.RoleAdmin)
		f := newTaskFixture(t, creator, assignee, admin, other)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		_, _, err = f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusCompleted)
		require.NoError(t, err)

		for _, adminUser := range []*domain.User{admin, other} {
			notes := f.notes.forUser(adminUser.ID)
			require.Len(t, notes, 1)
			assert.Equal(t, `Task "Ship the release" has been completed by Bob`, notes[0].Message)
			assert.Equal(t, domain.NotificationTaskCompleted, notes[0].Type)
		}

		// Creator got the regular status-change notification.
		creatorNotes := f.notes.forUser(creator.ID)
		require.Len(t, creatorNotes, 1)
		assert.Equal(t, `Bob completed task: "Ship the release"`, creatorNotes[0].Message)
	})

	t.Run("same status produces no notification", func(t *testing.T) {
		t.Parallel()
		f, creator, assignee, task := setup(t)

		_, old, err := f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusToDo)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusToDo, old)
		assert.Empty(t, f.notes.forUser(creator.ID))
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		f, _, assignee, _ := setup(t)

		_, _, err := f.svc.UpdateStatus(ctx, assignee, uuid.New(), domain.StatusInProgress)
		require.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	strPtr := func(s string) *string { return &s }

	t.Run("creator edits fields", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		priority := domain.PriorityUrgent
		updated, err := f.svc.Update(ctx, creator, task.ID, UpdateTaskInput{
			Title:    strPtr("Ship the hotfix"),
			Priority: &priority,
		})
		require.NoError(t, err)
		assert.Equal(t, "Ship the hotfix", updated.Title)
		assert.Equal(t, domain.PriorityUrgent, updated.Priority)
		assert.Equal(t, task.Description, updated.Description)
	})

	t.Run("assignee who is not creator cannot edit", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, assignee, task.ID, UpdateTaskInput{Title: strPtr("Hijacked")})
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("reassignment notifies both assignees", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		oldAssignee := newTestUser(t, "Bob", domain.RoleUser)
		newAssignee := newTestUser(t, "Cara", domain.RoleUser)
		f := newTaskFixture(t, creator, oldAssignee, newAssignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(oldAssignee.ID))
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, creator, task.ID, UpdateTaskInput{AssignedToID: &newAssignee.ID})
		require.NoError(t, err)
		assert.Equal(t, newAssignee.ID, updated.AssignedToID)

		newNotes := f.notes.forUser(newAssignee.ID)
		require.Len(t, newNotes, 1)
		assert.Equal(t, `Alice assigned you a task: "Ship the release"`, newNotes[0].Message)
		assert.Equal(t, domain.NotificationTaskAssigned, newNotes[0].Type)

		// Old assignee has the original assignment plus the reassignment notice.
		oldNotes := f.notes.forUser(oldAssignee.ID)
		require.Len(t, oldNotes, 2)
		var reassigned bool
		for _, n := range oldNotes {
			if n.Message == `Task "Ship the release" has been reassigned` {
				reassigned = true
				assert.Equal(t, domain.NotificationTaskUpdated, n.Type)
			}
		}
		assert.True(t, reassigned)
	})

	t.Run("reassignment to unknown user", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		ghost := uuid.New()
		_, err = f.svc.Update(ctx, creator, task.ID, UpdateTaskInput{AssignedToID: &ghost})
		require.ErrorIs(t, err, ErrAssigneeNotFound)
	})

	t.Run("admin cannot reassign to themselves", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		f := newTaskFixture(t, creator, assignee, admin)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, admin, task.ID, UpdateTaskInput{AssignedToID: &admin.ID})
		require.ErrorIs(t, err, ErrSelfAssign)
	})
}

func TestTaskService_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin deletes any task and notifications cascade", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		f := newTaskFixture(t, creator, assignee, admin)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)
		require.NotEmpty(t, f.notes.forUser(assignee.ID))

		require.NoError(t, f.svc.Delete(ctx, admin, task.ID))

		_, err = f.svc.Get(ctx, admin, task.ID)
		require.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.Empty(t, f.notes.forUser(assignee.ID))
	})

	t.Run("creator deletes own completed task", func(t *testing.T) {
		t.Parallel()
		creator := newTestUser(t, "Alice", domain.RoleUser)
		assignee := newTestUser(t, "Bob", domain.RoleUser)
		f := newTaskFixture(t, creator, assignee)
		task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
		require.NoError(t, err)

		err = f.svc.Delete(ctx, creator, task.ID)
		require.ErrorIs(t, err, ErrNotAuthorized)

		_, _, err = f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusCompleted)
		require.NoError(t, err)
		require.NoError(t, f.svc.Delete(ctx, creator, task.ID))
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		admin := newTestUser(t, "Root", domain.RoleAdmin)
		f := newTaskFixture(t, admin)

		err := f.svc.Delete(ctx, admin, uuid.New())
		require.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestTaskService_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	creator := newTestUser(t, "Alice", domain.RoleUser)
	assignee := newTestUser(t, "Bob", domain.RoleUser)
	admin := newTestUser(t, "Root", domain.RoleAdmin)
	stranger := newTestUser(t, "Mallory", domain.RoleUser)
	f := newTaskFixture(t, creator, assignee, admin, stranger)
	task, _, err := f.svc.Create(ctx, creator, validCreateInput(assignee.ID))
	require.NoError(t, err)

	for _, viewer := range []*domain.User{creator, assignee, admin} {
		got, err := f.svc.Get(ctx, viewer, task.ID)
		require.NoError(t, err, "viewer %s", viewer.Name)
		assert.Equal(t, task.ID, got.ID)
	}

	_, err = f.svc.Get(ctx, stranger, task.ID)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestTaskService_DashboardStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	creator := newTestUser(t, "Alice", domain.RoleUser)
	assignee := newTestUser(t, "Bob", domain.RoleUser)
	f := newTaskFixture(t, creator, assignee)

	for i := 0; i < 4; i++ {
		in := validCreateInput(assignee.ID)
		in.Title = fmt.Sprintf("Task %d", i)
		task, _, err := f.svc.Create(ctx, creator, in)
		require.NoError(t, err)
		if i == 0 {
			_, _, err = f.svc.UpdateStatus(ctx, assignee, task.ID, domain.StatusCompleted)
			require.NoError(t, err)
		}
	}

	stats, err := f.svc.DashboardStats(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.InDelta(t, 25.0, stats.CompletionRate, 0.001)
	assert.Equal(t, 4, stats.HighPriorityTasks)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusCompleted])
	assert.Equal(t, 3, stats.ByStatus[domain.StatusToDo])
	assert.Len(t, stats.RecentTasks, 4)

	empty := newTestUser(t, "Nobody", domain.RoleUser)
	f.users.users[empty.ID] = empty
	noStats, err := f.svc.DashboardStats(ctx, empty)
	require.NoError(t, err)
	assert.Zero(t, noStats.TotalTasks)
	assert.Zero(t, noStats.CompletionRate)
}

// Errors from errors.Is matching on the wrapped sentinels.
func TestDuplicateTaskError(t *testing.T) {
	t.Parallel()

	task := &domain.Task{ID: uuid.New(), Title: "Existing", Status: domain.StatusToDo}
	err := &DuplicateTaskError{Existing: task}

	assert.True(t, errors.Is(err, ErrDuplicateTask))
	assert.Contains(t, err.Error(), "Existing")
}
