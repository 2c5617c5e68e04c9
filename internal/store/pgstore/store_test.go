package pgstore

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL and empties the task tables.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, url, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.Pool().Exec(ctx, `TRUNCATE task_tags, tasks, tags, projects, folders`)
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Home")
	require.NoError(t, err)

	_, err = s.CreateFolder(ctx, "Home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	project, err := s.CreateProject(ctx, "Errands", folder)
	require.NoError(t, err)
	project.Sequential = true
	project.Status = core.StatusOnHold
	require.NoError(t, s.UpdateProject(ctx, project))

	got, err := s.FindProjectByName(ctx, "Errands")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, folder.ID, got.FolderID)
	assert.True(t, got.Sequential)
	assert.Equal(t, core.StatusOnHold, got.Status)

	task, err := s.CreateTask(ctx, "Buy milk", project)
	require.NoError(t, err)

	due := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	minutes := 75
	task.DueDate = &due
	task.EstimatedMinutes = &minutes
	task.Flagged = true
	require.NoError(t, s.UpdateTask(ctx, task))

	tag, err := s.EnsureTag(ctx, "errand")
	require.NoError(t, err)
	again, err := s.EnsureTag(ctx, "errand")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)
	require.NoError(t, s.AddTaskTag(ctx, task, tag))

	done := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkTaskComplete(ctx, task, done))

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].DueDate.Equal(due))
	assert.Equal(t, 75, *tasks[0].EstimatedMinutes)
	assert.True(t, tasks[0].Flagged)
	assert.True(t, tasks[0].Completed)
	assert.True(t, tasks[0].CompletionDate.Equal(done))

	names, err := s.TaskTags(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"errand"}, names)

	missing, err := s.FindFolderByName(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Import(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	text := strings.Repeat("preamble\n", core.PreambleLines) +
		"Title,List Name,Folder Name,Priority\n" +
		"Buy milk,Errands,Home,High\n" +
		"Call Bob,Errands,Home,\n" +
		",Errands,Home,\n"

	r := core.NewReconciler(s, core.DefaultOptions(), nil)
	for run := 0; run < 2; run++ {
		result, err := r.Run(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Stats.CreatedTasks)
		assert.Equal(t, 1, result.Stats.SkippedTasks)
	}

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.True(t, tasks[0].Flagged)
}

func TestStore_WithinRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithinRecord(ctx, func(st core.Store) error {
		if _, err := st.CreateFolder(ctx, "Kept"); err != nil {
			return err
		}
		inner := st.WithinRecord(ctx, func(st core.Store) error {
			if _, err := st.CreateTask(ctx, "Dropped", nil); err != nil {
				return err
			}
			return errors.New("inner failed")
		})
		assert.EqualError(t, inner, "inner failed")
		return nil
	})
	require.NoError(t, err)

	err = s.WithinRecord(ctx, func(st core.Store) error {
		if _, err := st.CreateTask(ctx, "Also dropped", nil); err != nil {
			return err
		}
		return errors.New("record failed")
	})
	require.EqualError(t, err, "record failed")

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Kept", folders[0].Name)

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
