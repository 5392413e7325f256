package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserStore is an in-memory store.UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User

	createErr error
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) List(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *fakeUserStore) ListAdmins(_ context.Context) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var admins []*domain.User
	for _, u := range s.users {
		if u.Role == domain.RoleAdmin {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

// fakeTaskStore is an in-memory store.TaskStore.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	createErr error
	updateErr error
}

func newFakeTaskStore(tasks ...*domain.Task) *fakeTaskStore {
	s := &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	return s
}

func (s *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		copied := *task
		return &copied, nil
	}
	return nil, store.ErrTaskNotFound
}

func (s *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeTaskStore) visible(scope store.TaskScope) []*domain.Task {
	var tasks []*domain.Task
	for _, task := range s.tasks {
		if scope.Admin || task.CreatorID == scope.ViewerID || task.AssignedToID == scope.ViewerID {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (s *fakeTaskStore) List(_ context.Context, scope store.TaskScope, filter store.TaskFilter) ([]*domain.Task, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*domain.Task
	for _, task := range s.visible(scope) {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if !scope.Admin && filter.AssignedOnly && task.AssignedToID != scope.ViewerID {
			continue
		}
		if !scope.Admin && filter.CreatedOnly && task.CreatorID != scope.ViewerID {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })
	return tasks, len(tasks), nil
}

func (s *fakeTaskStore) Recent(_ context.Context, scope store.TaskScope, limit int) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.visible(scope)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt) })
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *fakeTaskStore) FindActiveDuplicate(_ context.Context, title string, creatorID, assignedToID uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, task := range s.tasks {
		if strings.ToLower(strings.TrimSpace(task.Title)) == normalized &&
			task.CreatorID == creatorID &&
			task.AssignedToID == assignedToID &&
			!task.Status.IsTerminal() {
			return task, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *fakeTaskStore) Stats(_ context.Context, scope store.TaskScope) (*store.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &store.TaskStats{
		ByStatus:   make(map[domain.Status]int),
		ByPriority: make(map[domain.Priority]int),
	}
	now := time.Now().UTC()
	for _, task := range s.visible(scope) {
		stats.Total++
		stats.ByStatus[task.Status]++
		stats.ByPriority[task.Priority]++
		if task.Status == domain.StatusCompleted {
			stats.Completed++
		}
		if task.IsOverdue(now) {
			stats.Overdue++
		}
		if task.Priority == domain.PriorityHigh || task.Priority == domain.PriorityUrgent {
			stats.HighPriority++
		}
	}
	return stats, nil
}

// fakeNotificationStore is an in-memory store.NotificationStore.
type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*domain.Notification

	createErr error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{}
}

func (s *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *n
	s.notifications = append(s.notifications, &copied)
	return nil
}

func (s *fakeNotificationStore) ListForUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return n, nil
		}
	}
	return nil, store.ErrNotificationNotFound
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			modified++
		}
	}
	return modified, nil
}

func (s *fakeNotificationStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return store.ErrNotificationNotFound
}

func (s *fakeNotificationStore) DeleteByTask(_ context.Context, taskID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*domain.Notification
	for _, n := range s.notifications {
		if n.TaskID == nil || *n.TaskID != taskID {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	return nil
}

func (s *fakeNotificationStore) forUser(userID uuid.UUID) []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			list = append(list, n)
		}
	}
	return list
}

// Interface guards for the fakes.
var (
	_ store.UserStore         = (*fakeUserStore)(nil)
	_ store.TaskStore         = (*fakeTaskStore)(nil)
	_ store.NotificationStore = (*fakeNotificationStore)(nil)
)
