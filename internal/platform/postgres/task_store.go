package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/platform/logger"
	"github.com/kwren/taskhive-api/internal/store"
)

// taskSortColumns whitelists the sortable fields exposed by the listing API
// and maps them to their column names. Anything else falls back to due_date.
var taskSortColumns = map[string]string{
	"dueDate":   "due_date",
	"priority":  "priority",
	"status":    "status",
	"title":     "title",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const taskColumns = "id, title, description, due_date, priority, status, creator_id, assigned_to_id, created_at, updated_at"

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, due_date, priority, status, creator_id, assigned_to_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.CreatorID,
		task.AssignedToID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("task references missing user",
				slog.String("creator_id", task.CreatorID.String()),
				slog.String("assigned_to_id", task.AssignedToID.String()))
			return fmt.Errorf("%w: referenced user", store.ErrUserNotFound)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, priority = $5, status = $6, assigned_to_id = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.AssignedToID,
		task.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced user", store.ErrUserNotFound)
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List
// The total is computed over the filtered set before pagination so callers
// can derive hasMore.
func (s *PostgresTaskStore) List(ctx context.Context, scope store.TaskScope, filter store.TaskFilter) ([]*domain.Task, int, error) {
	where, args := taskScopeClauses(scope)

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	if !scope.Admin && filter.AssignedOnly {
		args = append(args, scope.ViewerID)
		where = append(where, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}
	if !scope.Admin && filter.CreatedOnly {
		args = append(args, scope.ViewerID)
		where = append(where, fmt.Sprintf("creator_id = $%d", len(args)))
	}

	column, ok := taskSortColumns[filter.SortField]
	if !ok {
		column = "due_date"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) OVER() AS total FROM tasks%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		taskColumns,
		whereClause(where),
		column,
		direction,
		limit,
		(page-1)*limit,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	var total int
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.DueDate,
			&task.Priority,
			&task.Status,
			&task.CreatorID,
			&task.AssignedToID,
			&task.CreatedAt,
			&task.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	// A page past the end returns zero rows, so the window total is lost;
	// fall back to a bare count in that case.
	if len(tasks) == 0 {
		countQuery := `SELECT COUNT(*) FROM tasks` + whereClause(where)
		if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
		}
	}

	return tasks, total, nil
}

// Recent implements store.TaskStore.Recent
func (s *PostgresTaskStore) Recent(ctx context.Context, scope store.TaskScope, limit int) ([]*domain.Task, error) {
	if limit < 1 {
		limit = 5
	}

	where, args := taskScopeClauses(scope)
	query := fmt.Sprintf(
		`SELECT %s FROM tasks%s ORDER BY updated_at DESC LIMIT %d`,
		taskColumns,
		whereClause(where),
		limit,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}
	return tasks, nil
}

// FindActiveDuplicate implements store.TaskStore.FindActiveDuplicate
// Title comparison is case-insensitive on the trimmed title. Terminal tasks
// never count as duplicates.
func (s *PostgresTaskStore) FindActiveDuplicate(ctx context.Context, title string, creatorID, assignedToID uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE lower(trim(title)) = lower(trim($1))
		  AND creator_id = $2
		  AND assigned_to_id = $3
		  AND status NOT IN ($4, $5)
		LIMIT 1
	`
	task, err := scanTask(s.db.QueryRowContext(
		ctx, query, title, creatorID, assignedToID,
		domain.StatusCompleted, domain.StatusCancelled,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find duplicate task: %w", err)
	}
	return task, nil
}

// Stats implements store.TaskStore.Stats
func (s *PostgresTaskStore) Stats(ctx context.Context, scope store.TaskScope) (*store.TaskStats, error) {
	where, args := taskScopeClauses(scope)
	clause := whereClause(where)

	stats := &store.TaskStats{
		ByStatus:   make(map[domain.Status]int),
		ByPriority: make(map[domain.Priority]int),
	}

	summary := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = '%s'),
			COUNT(*) FILTER (WHERE due_date < NOW() AND status <> '%s'),
			COUNT(*) FILTER (WHERE priority IN ('%s', '%s'))
		FROM tasks%s`,
		domain.StatusCompleted,
		domain.StatusCompleted,
		domain.PriorityHigh,
		domain.PriorityUrgent,
		clause,
	)
	err := s.db.QueryRowContext(ctx, summary, args...).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Overdue,
		&stats.HighPriority,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute task summary: %w", err)
	}

	byStatus := `SELECT status, COUNT(*) FROM tasks` + clause + ` GROUP BY status`
	rows, err := s.db.QueryContext(ctx, byStatus, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status group: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status groups: %w", err)
	}

	byPriority := `SELECT priority, COUNT(*) FROM tasks` + clause + ` GROUP BY priority`
	prows, err := s.db.QueryContext(ctx, byPriority, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks by priority: %w", err)
	}
	defer func() { _ = prows.Close() }()
	for prows.Next() {
		var priority domain.Priority
		var count int
		if err := prows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority group: %w", err)
		}
		stats.ByPriority[priority] = count
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate priority groups: %w", err)
	}

	return stats, nil
}

// taskScopeClauses returns the WHERE fragments restricting a query to the
// tasks the scope's viewer may see. Admins get no restriction.
func taskScopeClauses(scope store.TaskScope) ([]string, []any) {
	if scope.Admin {
		return nil, nil
	}
	return []string{"(creator_id = $1 OR assigned_to_id = $1)"}, []any{scope.ViewerID}
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func scanTask(row *sql.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.CreatorID,
		&task.AssignedToID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTaskRows(rows *sql.Rows) (*domain.Task, error) {
	var task domain.Task
	err := rows.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.CreatorID,
		&task.AssignedToID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task row: %w", err)
	}
	return &task, nil
}
