package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/log"
	"github.com/Megamind2600/TimerAD/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository and runs pending migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateTask creates a new task in the repository.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, notes, priority, status, deadline, time_spent, distraction_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Notes, t.Priority, string(t.Status), nullableTime(t.Deadline),
		t.TimeSpent, t.DistractionTime, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("task with id %s: %w", t.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, notes, priority, status, deadline, time_spent, distraction_time, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	return task, nil
}

// ListTasks returns all tasks ordered by priority, then creation time.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, notes, priority, status, deadline, time_spent, distraction_time, created_at, updated_at
		FROM tasks ORDER BY priority DESC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask updates an existing task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, notes = ?, priority = ?, status = ?, deadline = ?,
		    time_spent = ?, distraction_time = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Notes, t.Priority, string(t.Status), nullableTime(t.Deadline),
		t.TimeSpent, t.DistractionTime, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	if err := requireRow(result, t.ID); err != nil {
		return err
	}

	r.logger.Debugf("Updated task in repository: %s", t.ID)
	return nil
}

// DeleteTask deletes a task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	if err := requireRow(result, id); err != nil {
		return err
	}

	r.logger.Debugf("Deleted task from repository: %s", id)
	return nil
}

// ApplyTimerDelta atomically increments the task's time counters with a
// single relative UPDATE, so concurrent edits to other columns are kept.
func (r *Repository) ApplyTimerDelta(ctx context.Context, id string, delta model.TimerDelta) (*model.Task, error) {
	if err := delta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delta: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET time_spent = time_spent + ?, distraction_time = distraction_time + ?, updated_at = ?
		WHERE id = ?`,
		delta.TimeSpent, delta.Distraction, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("could not apply timer delta: %w", err)
	}

	if err := requireRow(result, id); err != nil {
		return nil, err
	}

	return r.GetTask(ctx, id)
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var status string
	var deadline sql.NullTime

	err := row.Scan(&task.ID, &task.Title, &task.Notes, &task.Priority, &status, &deadline,
		&task.TimeSpent, &task.DistractionTime, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = model.TaskStatus(status)
	if deadline.Valid {
		deadlineValue := deadline.Time
		task.Deadline = &deadlineValue
	}

	return &task, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error string,
	// there is no exported sentinel to match on.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
