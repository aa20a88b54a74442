package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/storage"
)

// document is the JSON interchange format for the task collection.
type document struct {
	Version int        `json:"version"`
	Tasks   []taskJSON `json:"tasks"`
}

type taskJSON struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes,omitempty"`
	Priority        int        `json:"priority"`
	Status          string     `json:"status"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	TimeSpent       int        `json:"time_spent"`
	DistractionTime int        `json:"distraction_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const documentVersion = 1

// Export writes the whole task collection as a JSON document.
func Export(ctx context.Context, repo storage.Repository, w io.Writer) error {
	tasks, err := repo.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	doc := document{Version: documentVersion, Tasks: make([]taskJSON, 0, len(tasks))}
	for _, task := range tasks {
		doc.Tasks = append(doc.Tasks, toJSON(task))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("could not encode tasks: %w", err)
	}

	return nil
}

// Import loads tasks from a JSON document, creating unknown tasks and
// updating existing ones. It returns the number of imported tasks.
func Import(ctx context.Context, repo storage.Repository, r io.Reader) (int, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("could not decode tasks: %w", err)
	}
	if doc.Version != documentVersion {
		return 0, fmt.Errorf("unsupported document version %d: %w", doc.Version, model.ErrNotValid)
	}

	imported := 0
	for _, entry := range doc.Tasks {
		task, err := entry.toModel()
		if err != nil {
			return imported, fmt.Errorf("invalid task %q: %w", entry.ID, err)
		}

		err = repo.CreateTask(ctx, task)
		if errors.Is(err, model.ErrAlreadyExists) {
			err = repo.UpdateTask(ctx, task)
		}
		if err != nil {
			return imported, fmt.Errorf("could not store task %s: %w", task.ID, err)
		}
		imported++
	}

	return imported, nil
}

func toJSON(task model.Task) taskJSON {
	return taskJSON{
		ID:              task.ID,
		Title:           task.Title,
		Notes:           task.Notes,
		Priority:        task.Priority,
		Status:          string(task.Status),
		Deadline:        task.Deadline,
		TimeSpent:       task.TimeSpent,
		DistractionTime: task.DistractionTime,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}
}

func (t taskJSON) toModel() (model.Task, error) {
	task := model.Task{
		ID:              t.ID,
		Title:           strings.TrimSpace(t.Title),
		Notes:           t.Notes,
		Priority:        t.Priority,
		Status:          model.TaskStatus(t.Status),
		Deadline:        t.Deadline,
		TimeSpent:       t.TimeSpent,
		DistractionTime: t.DistractionTime,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if task.ID == "" {
		task.ID = model.NewTaskID()
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if task.Priority == 0 {
		task.Priority = model.PriorityMedium
	}

	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	return task, nil
}
