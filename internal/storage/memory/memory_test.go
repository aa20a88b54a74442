package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Megamind2600/TimerAD/internal/core/model"
	"github.com/Megamind2600/TimerAD/internal/storage/memory"
)

func newTask(id, title string) model.Task {
	return model.Task{
		ID:       id,
		Title:    title,
		Priority: model.PriorityMedium,
		Status:   model.TaskStatusPending,
	}
}

func TestRepositoryCRUD(t *testing.T) {
	tests := map[string]struct {
		run func(t *testing.T, repo *memory.Repository)
	}{
		"Creating and getting a task should return the same task.": {
			run: func(t *testing.T, repo *memory.Repository) {
				task := newTask("t1", "Write report")
				require.NoError(t, repo.CreateTask(context.TODO(), task))

				got, err := repo.GetTask(context.TODO(), "t1")
				require.NoError(t, err)
				assert.Equal(t, task, *got)
			},
		},
		"Creating a duplicated task should fail.": {
			run: func(t *testing.T, repo *memory.Repository) {
				task := newTask("t1", "Write report")
				require.NoError(t, repo.CreateTask(context.TODO(), task))

				err := repo.CreateTask(context.TODO(), task)
				assert.ErrorIs(t, err, model.ErrAlreadyExists)
			},
		},
		"Creating an invalid task should fail.": {
			run: func(t *testing.T, repo *memory.Repository) {
				err := repo.CreateTask(context.TODO(), newTask("t1", ""))
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},
		"Getting a missing task should fail.": {
			run: func(t *testing.T, repo *memory.Repository) {
				_, err := repo.GetTask(context.TODO(), "missing")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},
		"Listing should return all tasks ordered by id.": {
			run: func(t *testing.T, repo *memory.Repository) {
				require.NoError(t, repo.CreateTask(context.TODO(), newTask("t2", "Second")))
				require.NoError(t, repo.CreateTask(context.TODO(), newTask("t1", "First")))

				tasks, err := repo.ListTasks(context.TODO())
				require.NoError(t, err)
				require.Len(t, tasks, 2)
				assert.Equal(t, "t1", tasks[0].ID)
				assert.Equal(t, "t2", tasks[1].ID)
			},
		},
		"Updating an existing task should replace it.": {
			run: func(t *testing.T, repo *memory.Repository) {
				require.NoError(t, repo.CreateTask(context.TODO(), newTask("t1", "Write report")))

				updated := newTask("t1", "Write the final report")
				updated.Status = model.TaskStatusDone
				require.NoError(t, repo.UpdateTask(context.TODO(), updated))

				got, err := repo.GetTask(context.TODO(), "t1")
				require.NoError(t, err)
				assert.Equal(t, updated, *got)
			},
		},
		"Updating a missing task should fail.": {
			run: func(t *testing.T, repo *memory.Repository) {
				err := repo.UpdateTask(context.TODO(), newTask("missing", "Nope"))
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},
		"Deleting a task should remove it.": {
			run: func(t *testing.T, repo *memory.Repository) {
				require.NoError(t, repo.CreateTask(context.TODO(), newTask("t1", "Write report")))
				require.NoError(t, repo.DeleteTask(context.TODO(), "t1"))

				_, err := repo.GetTask(context.TODO(), "t1")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},
		"Deleting a missing task should fail.": {
			run: func(t *testing.T, repo *memory.Repository) {
				err := repo.DeleteTask(context.TODO(), "missing")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)
			test.run(t, repo)
		})
	}
}

func TestRepositoryApplyTimerDelta(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	task := newTask("t1", "Write report")
	task.TimeSpent = 10
	require.NoError(repo.CreateTask(context.TODO(), task))

	got, err := repo.ApplyTimerDelta(context.TODO(), "t1", model.TimerDelta{TimeSpent: 1})
	require.NoError(err)
	assert.Equal(11, got.TimeSpent)
	assert.Equal(0, got.DistractionTime)

	got, err = repo.ApplyTimerDelta(context.TODO(), "t1", model.TimerDelta{Distraction: 1})
	require.NoError(err)
	assert.Equal(11, got.TimeSpent)
	assert.Equal(1, got.DistractionTime)

	stored, err := repo.GetTask(context.TODO(), "t1")
	require.NoError(err)
	assert.Equal(11, stored.TimeSpent)
	assert.Equal(1, stored.DistractionTime)
	assert.False(stored.UpdatedAt.IsZero())
}

func TestRepositoryApplyTimerDeltaFailures(t *testing.T) {
	tests := map[string]struct {
		id     string
		delta  model.TimerDelta
		expErr error
	}{
		"A delta against a missing task should fail.": {
			id:     "missing",
			delta:  model.TimerDelta{TimeSpent: 1},
			expErr: model.ErrNotFound,
		},
		"An empty delta should fail.": {
			id:     "t1",
			delta:  model.TimerDelta{},
			expErr: model.ErrNotValid,
		},
		"A negative delta should fail.": {
			id:     "t1",
			delta:  model.TimerDelta{Distraction: -1},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(t, err)
			require.NoError(t, repo.CreateTask(context.TODO(), newTask("t1", "Write report")))

			_, err = repo.ApplyTimerDelta(context.TODO(), test.id, test.delta)
			assert.ErrorIs(t, err, test.expErr)
		})
	}
}
