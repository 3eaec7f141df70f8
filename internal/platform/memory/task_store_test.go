package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/store"
)

func mustTask(t *testing.T, description string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(description)
	require.NoError(t, err)
	return task
}

func TestTaskStoreSave(t *testing.T) {
	ctx := context.Background()

	t.Run("save and retrieve", func(t *testing.T) {
		s := NewTaskStore()
		task := mustTask(t, "first")

		stored, err := s.Save(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, task.ID, stored.ID)
		assert.Equal(t, "first", stored.Description)
		assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		assert.Equal(t, stored.Description, got.Description)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		s := NewTaskStore()
		task := mustTask(t, "original")

		_, err := s.Save(ctx, task)
		require.NoError(t, err)

		task.Description = "revised"
		_, err = s.Save(ctx, task)
		require.NoError(t, err)

		assert.Equal(t, 1, s.Len())
		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "revised", got.Description)
	})

	t.Run("invalid task rejected", func(t *testing.T) {
		s := NewTaskStore()
		task := mustTask(t, "valid")
		task.Description = ""

		_, err := s.Save(ctx, task)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("nil task rejected", func(t *testing.T) {
		s := NewTaskStore()
		_, err := s.Save(ctx, nil)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("stored value is isolated from caller mutation", func(t *testing.T) {
		s := NewTaskStore()
		task := mustTask(t, "isolated")

		_, err := s.Save(ctx, task)
		require.NoError(t, err)

		task.Description = "mutated after save"
		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "isolated", got.Description)
	})
}

func TestTaskStoreGetByID(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	_, err := s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store lists nothing", func(t *testing.T) {
		s := NewTaskStore()
		tasks, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("ordered by CreatedAt ascending", func(t *testing.T) {
		s := NewTaskStore()
		base := time.Now().UTC()

		// Insert out of order on purpose.
		for i, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
			task := mustTask(t, "task")
			task.CreatedAt = base.Add(offset)
			task.UpdatedAt = task.CreatedAt
			task.Description = []string{"third", "first", "second"}[i]
			_, err := s.Save(ctx, task)
			require.NoError(t, err)
		}

		tasks, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "first", tasks[0].Description)
		assert.Equal(t, "second", tasks[1].Description)
		assert.Equal(t, "third", tasks[2].Description)
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		s := NewTaskStore()
		at := time.Now().UTC()

		for _, desc := range []string{"a", "b", "c"} {
			task := mustTask(t, desc)
			task.CreatedAt = at
			task.UpdatedAt = at
			_, err := s.Save(ctx, task)
			require.NoError(t, err)
		}

		tasks, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "a", tasks[0].Description)
		assert.Equal(t, "b", tasks[1].Description)
		assert.Equal(t, "c", tasks[2].Description)
	})
}

func TestTaskStoreDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete removes exactly one", func(t *testing.T) {
		s := NewTaskStore()
		a := mustTask(t, "A")
		b := mustTask(t, "B")
		c := mustTask(t, "C")
		for _, task := range []*domain.Task{a, b, c} {
			_, err := s.Save(ctx, task)
			require.NoError(t, err)
		}

		require.NoError(t, s.Delete(ctx, b.ID))

		tasks, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, a.ID, tasks[0].ID)
		assert.Equal(t, c.ID, tasks[1].ID)

		_, err = s.GetByID(ctx, b.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("delete of unknown id fails", func(t *testing.T) {
		s := NewTaskStore()
		err := s.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestTaskStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	for _, desc := range []string{"one", "two"} {
		_, err := s.Save(ctx, mustTask(t, desc))
		require.NoError(t, err)
	}
	require.Equal(t, 2, s.Len())

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskStoreReplaceAllAndSnapshot(t *testing.T) {
	s := NewTaskStore()
	a := mustTask(t, "A")
	b := mustTask(t, "B")

	s.ReplaceAll([]*domain.Task{a, b})
	assert.Equal(t, 2, s.Len())

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, a.ID, snap[0].ID)
	assert.Equal(t, b.ID, snap[1].ID)

	// Snapshot copies are isolated from the store.
	snap[0].Description = "mutated"
	got, err := s.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Description)
}
