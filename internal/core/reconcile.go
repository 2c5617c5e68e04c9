package core

// reconcile.go applies import records to a Store.
//
// Folders and projects are keyed by exact name: each is looked up first and
// created only when missing, so re-running an import never duplicates them.
// Existing folders and projects are never modified. Tasks have no key and are
// created for every valid record, so a re-run does duplicate tasks.
//
// Records are applied one at a time in file order. A lookup always sees the
// entities created by earlier records of the same run. Each record is one
// unit of work: a record that fails part way leaves nothing behind.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CompletionMode selects the timestamp used when marking imported tasks complete.
type CompletionMode string

const (
	// CompleteAtNow marks tasks complete at the time of the import.
	CompleteAtNow CompletionMode = "now"
	// CompleteAtParsed marks tasks complete at their exported completion time.
	CompleteAtParsed CompletionMode = "parsed"
)

// Options configures a Reconciler.
type Options struct {
	// PreambleLines are discarded before the header row.
	PreambleLines int

	// Schema maps header text to fields. Nil means ExportSchema.
	Schema Schema

	Build BuildOptions

	CompletionTime CompletionMode

	// ProjectSequential and ProjectStatus are applied to newly created projects only.
	ProjectSequential bool
	ProjectStatus     ProjectStatus

	// Location resolves dates that carry no zone. Nil means time.Local.
	Location *time.Location
}

// DefaultOptions returns the options matching the export format.
func DefaultOptions() Options {
	return Options{
		PreambleLines:  PreambleLines,
		Schema:         ExportSchema,
		Build:          BuildOptions{PomodoroMinutes: DefaultPomodoroMinutes, HonorFolders: true},
		CompletionTime: CompleteAtNow,
		ProjectStatus:  StatusActive,
	}
}

// Reconciler runs the import pipeline against a Store.
type Reconciler struct {
	store  Store
	opts   Options
	dates  *DateParser
	logger *slog.Logger
	now    func() time.Time
}

// NewReconciler creates a Reconciler. A nil logger means slog.Default().
func NewReconciler(store Store, opts Options, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Schema == nil {
		opts.Schema = ExportSchema
	}
	if opts.PreambleLines < 0 {
		opts.PreambleLines = 0
	}
	if opts.CompletionTime == "" {
		opts.CompletionTime = CompleteAtNow
	}
	if opts.ProjectStatus == "" {
		opts.ProjectStatus = StatusActive
	}
	return &Reconciler{
		store:  store,
		opts:   opts,
		dates:  NewDateParser(opts.Location, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Run imports the export in text. The first row after the preamble is the
// header; every later row is a data row. Row-level problems are recorded on
// the result and never stop the run. Run fails only when text holds no header
// or ctx is done.
func (r *Reconciler) Run(ctx context.Context, text string) (*RunResult, error) {
	result := &RunResult{StartedAt: r.now()}

	var builder *RecordBuilder
	for line, row := range Tokenize(text, r.opts.PreambleLines) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import cancelled at line %d: %w", line, err)
		}

		if builder == nil {
			cols := MapColumns(row, r.opts.Schema)
			if missing := cols.Missing(r.opts.Schema); len(missing) > 0 {
				r.logger.Warn("columns not found in header", "columns", missing)
			}
			if !cols.Has(FieldTitle) {
				r.logger.Warn("header has no title column, every row will be skipped")
			}
			builder = NewRecordBuilder(cols, r.dates, r.opts.Build)
			result.Header = append([]string(nil), row...)
			continue
		}

		result.Stats.TotalRows++

		rec, err := builder.Build(row)
		if err != nil {
			r.skip(result, line, err, row)
			continue
		}

		_, changes, err := r.apply(ctx, rec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("import cancelled at line %d: %w", line, ctxErr)
			}
			r.skip(result, line, err, row)
			continue
		}
		result.Stats.CreatedTasks++
		if changes.folder != nil {
			result.CreatedFolders = append(result.CreatedFolders, changes.folder.Name)
		}
		if changes.project != nil {
			result.CreatedProjects = append(result.CreatedProjects, changes.project.Name)
		}
	}

	if builder == nil {
		return nil, ErrEmptyFile
	}

	result.Duration = r.now().Sub(result.StartedAt)
	r.logger.Info("import finished",
		"total_rows", result.Stats.TotalRows,
		"created_tasks", result.Stats.CreatedTasks,
		"skipped_tasks", result.Stats.SkippedTasks,
	)
	return result, nil
}

func (r *Reconciler) skip(result *RunResult, line int, err error, row RawRow) {
	result.Stats.SkippedTasks++
	result.Failures = append(result.Failures, FailedRow{
		Line:   line,
		Reason: err.Error(),
		Data:   append([]string(nil), row...),
	})

	level := slog.LevelWarn
	if errors.Is(err, ErrMissingTitle) {
		level = slog.LevelInfo
	}
	r.logger.Log(context.Background(), level, "row skipped", "line", line, "reason", err.Error())
}

// recordChanges holds the containers a single record created.
type recordChanges struct {
	folder  *Folder
	project *Project
}

// Apply reconciles one record: it ensures the record's folder and project
// exist, then creates the task with its metadata, tags and completion. All of
// it happens inside one Store.WithinRecord call, so on error the store is
// left as it was.
func (r *Reconciler) Apply(ctx context.Context, rec ImportRecord) (*Task, error) {
	task, _, err := r.apply(ctx, rec)
	return task, err
}

func (r *Reconciler) apply(ctx context.Context, rec ImportRecord) (*Task, recordChanges, error) {
	if rec.Title == "" {
		return nil, recordChanges{}, ErrMissingTitle
	}

	var (
		task    *Task
		changes recordChanges
	)
	err := r.store.WithinRecord(ctx, func(st Store) error {
		changes = recordChanges{}
		var err error
		task, err = r.applyTo(ctx, st, rec, &changes)
		return err
	})
	if err != nil {
		return nil, recordChanges{}, err
	}

	if f := changes.folder; f != nil {
		r.logger.Info("created folder", "folder", f.Name)
	}
	if p := changes.project; p != nil {
		parent := "Root"
		if rec.ProjectParentFolder != "" {
			parent = rec.ProjectParentFolder
		}
		r.logger.Info("created project", "project", p.Name, "folder", parent, "type", projectType(p.Sequential))
	}
	where := "Inbox"
	if rec.ProjectName != "" {
		where = rec.ProjectName
	}
	r.logger.Debug("created task", "title", rec.Title, "project", where)
	return task, changes, nil
}

func (r *Reconciler) applyTo(ctx context.Context, st Store, rec ImportRecord, changes *recordChanges) (*Task, error) {
	var folder *Folder
	if rec.ProjectParentFolder != "" {
		var err error
		if folder, err = r.ensureFolder(ctx, st, rec.ProjectParentFolder, changes); err != nil {
			return nil, err
		}
	}

	var project *Project
	if rec.ProjectName != "" {
		var err error
		if project, err = r.ensureProject(ctx, st, rec.ProjectName, folder, changes); err != nil {
			return nil, err
		}
	}

	task, err := st.CreateTask(ctx, rec.Title, project)
	if err != nil {
		return nil, fmt.Errorf("create task %q: %w", rec.Title, err)
	}

	task.Note = rec.Note
	task.DueDate = rec.DueDate
	task.DeferDate = rec.DeferDate
	task.Flagged = rec.Flagged
	task.EstimatedMinutes = rec.EstimatedMinutes
	if err := st.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task %q: %w", rec.Title, err)
	}

	for _, name := range rec.Tags {
		tag, err := st.FindTagByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find tag %q: %w", name, err)
		}
		if tag == nil {
			r.logger.Debug("tag not found", "tag", name, "task", rec.Title)
			continue
		}
		if err := st.AddTaskTag(ctx, task, tag); err != nil {
			return nil, fmt.Errorf("tag task %q with %q: %w", rec.Title, name, err)
		}
	}

	if rec.IsCompleted {
		at := r.now()
		if r.opts.CompletionTime == CompleteAtParsed && rec.CompletionDate != nil {
			at = *rec.CompletionDate
		}
		if err := st.MarkTaskComplete(ctx, task, at); err != nil {
			return nil, fmt.Errorf("complete task %q: %w", rec.Title, err)
		}
	}
	return task, nil
}

func (r *Reconciler) ensureFolder(ctx context.Context, st Store, name string, changes *recordChanges) (*Folder, error) {
	folder, err := st.FindFolderByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find folder %q: %w", name, err)
	}
	if folder != nil {
		return folder, nil
	}

	folder, err = st.CreateFolder(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, err)
	}
	changes.folder = folder
	return folder, nil
}

// ensureProject returns the project named name, creating it inside folder
// when it does not exist yet. An existing project is returned as-is, even if
// it lives in a different folder.
func (r *Reconciler) ensureProject(ctx context.Context, st Store, name string, folder *Folder, changes *recordChanges) (*Project, error) {
	project, err := st.FindProjectByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find project %q: %w", name, err)
	}
	if project != nil {
		return project, nil
	}

	project, err = st.CreateProject(ctx, name, folder)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}

	project.Sequential = r.opts.ProjectSequential
	project.Status = r.opts.ProjectStatus
	if err := st.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("update project %q: %w", name, err)
	}
	changes.project = project
	return project, nil
}

func projectType(sequential bool) string {
	if sequential {
		return "sequential"
	}
	return "parallel"
}

// ParseCompletionMode maps a mode name to a CompletionMode. Unknown names
// resolve to CompleteAtNow.
func ParseCompletionMode(s string) CompletionMode {
	if strings.EqualFold(s, string(CompleteAtParsed)) {
		return CompleteAtParsed
	}
	return CompleteAtNow
}
