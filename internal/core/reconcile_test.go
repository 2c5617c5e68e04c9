package core_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preamble = "Date: 2025-01-10+0000\nVersion: 7.1\nStatus:\n0 Normal\n1 Completed\n2 Archived\n"

func export(lines ...string) string {
	return preamble + strings.Join(lines, "\n") + "\n"
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newReconciler(store core.Store, opts core.Options) *core.Reconciler {
	return core.NewReconciler(store, opts, quietLogger())
}

func TestRun_EndToEnd(t *testing.T) {
	store := memstore.New()
	text := export(
		"Title,List Name,Folder Name,Priority",
		"Buy milk,Errands,Home,High",
		"Call Bob,Errands,Home,",
		",Errands,Home,",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, core.RunStatistics{TotalRows: 3, CreatedTasks: 2, SkippedTasks: 1}, result.Stats)

	folders := store.Folders()
	require.Len(t, folders, 1)
	assert.Equal(t, "Home", folders[0].Name)

	projects := store.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Errands", projects[0].Name)
	assert.Equal(t, folders[0].ID, projects[0].FolderID)

	tasks := store.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.True(t, tasks[0].Flagged)
	assert.Equal(t, projects[0].ID, tasks[0].ProjectID)
	assert.Equal(t, "Call Bob", tasks[1].Title)
	assert.False(t, tasks[1].Flagged)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, 10, result.Failures[0].Line)
	assert.Contains(t, result.Failures[0].Reason, "missing required title")
	assert.Equal(t, []string{"", "Errands", "Home", ""}, result.Failures[0].Data)
}

func TestRun_Idempotency(t *testing.T) {
	store := memstore.New()
	text := export(
		"Title,List Name,Folder Name",
		"One,Errands,Home",
		"Two,Errands,Home",
		"Three,Work,Office",
		"Four,Someday,",
	)
	r := newReconciler(store, core.DefaultOptions())

	_, err := r.Run(context.Background(), text)
	require.NoError(t, err)
	folders, projects, tasks := len(store.Folders()), len(store.Projects()), len(store.Tasks())

	_, err = r.Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, folders)
	assert.Equal(t, 3, projects)
	assert.Len(t, store.Folders(), folders, "folders must not be duplicated")
	assert.Len(t, store.Projects(), projects, "projects must not be duplicated")
	assert.Len(t, store.Tasks(), 2*tasks, "tasks are created on every run")
}

func TestRun_Inbox(t *testing.T) {
	store := memstore.New()
	text := export(
		"Title,List Name,Folder Name",
		"Loose end,Inbox,",
		"Another,inbox,Home",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.CreatedTasks)

	for _, task := range store.Tasks() {
		assert.Empty(t, task.ProjectID, "task %q", task.Title)
	}
	for _, p := range store.Projects() {
		assert.NotEqual(t, "Inbox", p.Name)
	}
	for _, f := range store.Folders() {
		assert.NotEqual(t, "Inbox", f.Name)
	}
}

func TestRun_TaskMetadata(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	_, err := store.EnsureTag(ctx, "errand")
	require.NoError(t, err)

	text := export(
		"Title,Content,Due Date,Start Date,Tags,Estimated Pomodoro,Completed Time,List Name",
		`Buy milk,"two litres`+"\n"+`semi-skimmed",1/4/25,2025-01-03,"errand,unknown",3,,Errands`,
		"Plan trip,,not a date,,,,,",
	)

	opts := core.DefaultOptions()
	opts.Location = time.UTC
	result, err := newReconciler(store, opts).Run(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatistics{TotalRows: 2, CreatedTasks: 2}, result.Stats)

	tasks := store.Tasks()
	require.Len(t, tasks, 2)

	milk := tasks[0]
	assert.Equal(t, "two litres\nsemi-skimmed", milk.Note)
	require.NotNil(t, milk.DueDate)
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), milk.DueDate.UTC())
	require.NotNil(t, milk.DeferDate)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), milk.DeferDate.UTC())
	require.NotNil(t, milk.EstimatedMinutes)
	assert.Equal(t, 75, *milk.EstimatedMinutes)
	assert.Equal(t, []string{"errand"}, store.TaskTags(milk.ID))
	assert.False(t, milk.Completed)

	trip := tasks[1]
	assert.Nil(t, trip.DueDate)
	assert.Nil(t, trip.EstimatedMinutes)
	assert.Empty(t, trip.ProjectID)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1, "imports never create tags")
}

func TestRun_Completion(t *testing.T) {
	text := export(
		"Title,Completed Time",
		"Done,2025-01-10T12:00:00Z",
		"Open,",
	)

	t.Run("now", func(t *testing.T) {
		store := memstore.New()
		before := time.Now()

		_, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
		require.NoError(t, err)

		tasks := store.Tasks()
		require.Len(t, tasks, 2)
		assert.True(t, tasks[0].Completed)
		require.NotNil(t, tasks[0].CompletionDate)
		assert.False(t, tasks[0].CompletionDate.Before(before))
		assert.False(t, tasks[1].Completed)
	})

	t.Run("parsed", func(t *testing.T) {
		store := memstore.New()
		opts := core.DefaultOptions()
		opts.CompletionTime = core.CompleteAtParsed

		_, err := newReconciler(store, opts).Run(context.Background(), text)
		require.NoError(t, err)

		tasks := store.Tasks()
		require.NotNil(t, tasks[0].CompletionDate)
		assert.True(t, tasks[0].CompletionDate.Equal(time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)))
	})
}

func TestRun_ProjectDefaults(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	existing, err := store.CreateProject(ctx, "Existing", nil)
	require.NoError(t, err)

	opts := core.DefaultOptions()
	opts.ProjectSequential = true
	opts.ProjectStatus = core.StatusOnHold
	text := export(
		"Title,List Name",
		"a,Existing",
		"b,Fresh",
	)

	_, err = newReconciler(store, opts).Run(ctx, text)
	require.NoError(t, err)

	got, err := store.FindProjectByName(ctx, "Existing")
	require.NoError(t, err)
	assert.Equal(t, *existing, *got, "existing projects are never modified")

	fresh, err := store.FindProjectByName(ctx, "Fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.True(t, fresh.Sequential)
	assert.Equal(t, core.StatusOnHold, fresh.Status)
}

func TestRun_ExistingProjectKeepsItsFolder(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	_, err := store.CreateProject(ctx, "Errands", nil)
	require.NoError(t, err)

	text := export(
		"Title,List Name,Folder Name",
		"Buy milk,Errands,Home",
	)
	_, err = newReconciler(store, core.DefaultOptions()).Run(ctx, text)
	require.NoError(t, err)

	projects := store.Projects()
	require.Len(t, projects, 1)
	assert.Empty(t, projects[0].FolderID)
	assert.Len(t, store.Folders(), 1, "folder is still ensured")
	assert.Equal(t, projects[0].ID, store.Tasks()[0].ProjectID)
}

func TestRun_IgnoreFolders(t *testing.T) {
	store := memstore.New()
	opts := core.DefaultOptions()
	opts.Build.HonorFolders = false

	_, err := newReconciler(store, opts).Run(context.Background(), export(
		"Title,List Name,Folder Name",
		"Buy milk,Errands,Home",
	))
	require.NoError(t, err)

	assert.Empty(t, store.Folders())
	require.Len(t, store.Projects(), 1)
	assert.Empty(t, store.Projects()[0].FolderID)
}

func TestRun_ShortRowsSkipped(t *testing.T) {
	store := memstore.New()
	text := export(
		"Title,List Name,Priority",
		"Buy milk,Errands",
		"Call Bob,Errands,High",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, core.RunStatistics{TotalRows: 2, CreatedTasks: 1, SkippedTasks: 1}, result.Stats)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "short row")
	assert.Len(t, store.Tasks(), 1)
}

func TestRun_NoHeader(t *testing.T) {
	_, err := newReconciler(memstore.New(), core.DefaultOptions()).Run(context.Background(), preamble)
	assert.ErrorIs(t, err, core.ErrEmptyFile)
}

func TestRun_HeaderOnly(t *testing.T) {
	result, err := newReconciler(memstore.New(), core.DefaultOptions()).Run(context.Background(), export("Title"))
	require.NoError(t, err)
	assert.Equal(t, core.RunStatistics{}, result.Stats)
	assert.Equal(t, []string{"Title"}, result.Header)
}

func TestRun_NoTitleColumn(t *testing.T) {
	store := memstore.New()
	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), export(
		"Name,List Name",
		"Buy milk,Errands",
	))
	require.NoError(t, err)

	assert.Equal(t, core.RunStatistics{TotalRows: 1, SkippedTasks: 1}, result.Stats)
	assert.Empty(t, store.Projects())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newReconciler(memstore.New(), core.DefaultOptions()).Run(ctx, export("Title", "a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "import cancelled")
}

// failingStore fails CreateTask for one title and FindTagByName for one tag.
type failingStore struct {
	*memstore.Store
	failTitle string
	failTag   string
}

func (s *failingStore) CreateTask(ctx context.Context, title string, project *core.Project) (*core.Task, error) {
	if title == s.failTitle {
		return nil, errors.New("constraint violated")
	}
	return s.Store.CreateTask(ctx, title, project)
}

func (s *failingStore) FindTagByName(ctx context.Context, name string) (*core.Tag, error) {
	if name == s.failTag {
		return nil, errors.New("connection reset")
	}
	return s.Store.FindTagByName(ctx, name)
}

func (s *failingStore) WithinRecord(ctx context.Context, fn func(core.Store) error) error {
	return s.Store.WithinRecord(ctx, func(core.Store) error { return fn(s) })
}

func TestRun_StoreErrorSkipsRow(t *testing.T) {
	store := &failingStore{Store: memstore.New(), failTitle: "Bad"}
	text := export(
		"Title",
		"Good",
		"Bad",
		"Also good",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, core.RunStatistics{TotalRows: 3, CreatedTasks: 2, SkippedTasks: 1}, result.Stats)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 9, result.Failures[0].Line)
	assert.Contains(t, result.Failures[0].Reason, "constraint violated")
}

func TestRun_StoreErrorRollsBackRow(t *testing.T) {
	store := &failingStore{Store: memstore.New(), failTag: "home"}
	_, err := store.EnsureTag(context.Background(), "home")
	require.NoError(t, err)

	text := export(
		"Title,List Name,Folder Name,Tags",
		"Buy milk,Errands,Home,home",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, core.RunStatistics{TotalRows: 1, CreatedTasks: 0, SkippedTasks: 1}, result.Stats)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Reason, "connection reset")
	assert.Empty(t, result.CreatedFolders)
	assert.Empty(t, result.CreatedProjects)

	assert.Empty(t, store.Tasks(), "a skipped row must not leave a task behind")
	assert.Empty(t, store.Projects())
	assert.Empty(t, store.Folders())
}

func TestRun_ReportsCreatedContainers(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	_, err := store.CreateFolder(ctx, "Work")
	require.NoError(t, err)
	_, err = store.CreateProject(ctx, "Reports", nil)
	require.NoError(t, err)

	text := export(
		"Title,List Name,Folder Name",
		"a,Reports,Work",
		"b,Errands,Home",
		"c,Errands,Home",
		"d,Calls,Work",
	)

	result, err := newReconciler(store, core.DefaultOptions()).Run(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home"}, result.CreatedFolders)
	assert.Equal(t, []string{"Errands", "Calls"}, result.CreatedProjects)
}

func TestApply_RejectsMissingTitle(t *testing.T) {
	store := memstore.New()
	_, err := newReconciler(store, core.DefaultOptions()).Apply(context.Background(), core.ImportRecord{ProjectName: "Errands"})

	assert.ErrorIs(t, err, core.ErrMissingTitle)
	assert.Empty(t, store.Projects())
}

func TestApply_SameRunSeesEarlierProjects(t *testing.T) {
	store := memstore.New()
	r := newReconciler(store, core.DefaultOptions())
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := r.Apply(ctx, core.ImportRecord{Title: title, ProjectName: "New", ProjectParentFolder: "F"})
		require.NoError(t, err)
	}

	assert.Len(t, store.Projects(), 1)
	assert.Len(t, store.Folders(), 1)
	assert.Len(t, store.Tasks(), 3)
}

func TestParseCompletionMode(t *testing.T) {
	assert.Equal(t, core.CompleteAtParsed, core.ParseCompletionMode("parsed"))
	assert.Equal(t, core.CompleteAtParsed, core.ParseCompletionMode("PARSED"))
	assert.Equal(t, core.CompleteAtNow, core.ParseCompletionMode("now"))
	assert.Equal(t, core.CompleteAtNow, core.ParseCompletionMode(""))
}
