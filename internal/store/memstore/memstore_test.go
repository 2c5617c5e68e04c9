package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FindMissingReturnsNil(t *testing.T) {
	s := New()
	ctx := context.Background()

	f, err := s.FindFolderByName(ctx, "Home")
	require.NoError(t, err)
	assert.Nil(t, f)

	p, err := s.FindProjectByName(ctx, "Errands")
	require.NoError(t, err)
	assert.Nil(t, p)

	tag, err := s.FindTagByName(ctx, "work")
	require.NoError(t, err)
	assert.Nil(t, tag)
}

func TestStore_NamesMatchExactly(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateFolder(ctx, "Home")
	require.NoError(t, err)

	f, err := s.FindFolderByName(ctx, "home")
	require.NoError(t, err)
	assert.Nil(t, f, "lookup must be case-sensitive")

	f, err = s.FindFolderByName(ctx, "Home")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Home", f.Name)
}

func TestStore_ProjectInFolder(t *testing.T) {
	s := New()
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Home")
	require.NoError(t, err)

	project, err := s.CreateProject(ctx, "Errands", folder)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, project.FolderID)
	assert.Equal(t, core.StatusActive, project.Status)

	root, err := s.CreateProject(ctx, "Someday", nil)
	require.NoError(t, err)
	assert.Empty(t, root.FolderID)

	_, err = s.CreateProject(ctx, "Orphan", &core.Folder{ID: "missing"})
	assert.Error(t, err)
}

func TestStore_UpdateProject(t *testing.T) {
	s := New()
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "Errands", nil)
	require.NoError(t, err)

	project.Sequential = true
	project.Status = core.StatusOnHold
	require.NoError(t, s.UpdateProject(ctx, project))

	got, err := s.FindProjectByName(ctx, "Errands")
	require.NoError(t, err)
	assert.True(t, got.Sequential)
	assert.Equal(t, core.StatusOnHold, got.Status)

	assert.Error(t, s.UpdateProject(ctx, &core.Project{ID: "missing"}))
}

func TestStore_TaskLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	task, err := s.CreateTask(ctx, "Buy milk", nil)
	require.NoError(t, err)
	assert.Empty(t, task.ProjectID)

	due := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	minutes := 75
	task.Note = "two litres"
	task.DueDate = &due
	task.Flagged = true
	task.EstimatedMinutes = &minutes
	require.NoError(t, s.UpdateTask(ctx, task))

	tag, err := s.EnsureTag(ctx, "errand")
	require.NoError(t, err)
	require.NoError(t, s.AddTaskTag(ctx, task, tag))
	require.NoError(t, s.AddTaskTag(ctx, task, tag))

	done := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkTaskComplete(ctx, task, done))
	assert.True(t, task.Completed)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, "two litres", got.Note)
	assert.Equal(t, due, *got.DueDate)
	assert.True(t, got.Flagged)
	assert.Equal(t, 75, *got.EstimatedMinutes)
	assert.True(t, got.Completed)
	assert.Equal(t, done, *got.CompletionDate)
	assert.Equal(t, []string{"errand"}, s.TaskTags(got.ID))
}

func TestStore_EnsureTagIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.EnsureTag(ctx, "work")
	require.NoError(t, err)
	b, err := s.EnsureTag(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	_, err = s.EnsureTag(ctx, "home")
	require.NoError(t, err)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "home", tags[0].Name)
	assert.Equal(t, "work", tags[1].Name)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	f, err := s.CreateFolder(ctx, "Home")
	require.NoError(t, err)
	f.Name = "Changed"

	assert.Equal(t, "Home", s.Folders()[0].Name)
}

func TestStore_WithinRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	tag, err := s.EnsureTag(ctx, "home")
	require.NoError(t, err)
	kept, err := s.CreateTask(ctx, "Keep", nil)
	require.NoError(t, err)

	err = s.WithinRecord(ctx, func(st core.Store) error {
		folder, err := st.CreateFolder(ctx, "Home")
		require.NoError(t, err)
		project, err := st.CreateProject(ctx, "Errands", folder)
		require.NoError(t, err)
		task, err := st.CreateTask(ctx, "Buy milk", project)
		require.NoError(t, err)
		require.NoError(t, st.AddTaskTag(ctx, task, tag))

		kept.Note = "edited"
		require.NoError(t, st.UpdateTask(ctx, kept))
		return errors.New("tag lookup failed")
	})
	require.EqualError(t, err, "tag lookup failed")

	assert.Empty(t, s.Folders())
	assert.Empty(t, s.Projects())
	require.Len(t, s.Tasks(), 1)
	assert.Equal(t, "Keep", s.Tasks()[0].Title)
	assert.Empty(t, s.Tasks()[0].Note, "in-place edits must be rolled back too")

	err = s.WithinRecord(ctx, func(st core.Store) error {
		_, err := st.CreateFolder(ctx, "Home")
		return err
	})
	require.NoError(t, err)
	assert.Len(t, s.Folders(), 1)
}
