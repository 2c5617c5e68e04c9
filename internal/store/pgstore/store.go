// Package pgstore is a task store in PostgreSQL.
//
// SQL lives in queries.go behind the DBTX interface, so the same queries run
// on a pool or inside a transaction. Store adapts the rows to core types.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements core.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
	tx   pgx.Tx // set on the Store handed to a WithinRecord func
}

var _ core.Store = (*Store)(nil)

// Open connects to url, verifies the connection and applies the schema.
func Open(ctx context.Context, url string, pc PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if pc.MaxConns > 0 {
		poolConfig.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		poolConfig.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, q: New(pool)}
	if err := s.q.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// WithinRecord runs fn inside a transaction and commits only when fn
// succeeds. Called on a Store that is already inside one, it opens a
// savepoint instead, which a failing fn rolls back to.
func (s *Store) WithinRecord(ctx context.Context, fn func(core.Store) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if s.tx != nil {
		tx, err = s.tx.Begin(ctx)
	} else {
		tx, err = s.pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, q: New(tx), tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func newID() string {
	return uuid.New().String()
}

// describe turns constraint violations into errors that name the entity.
func describe(err error, kind, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s %q already exists: %w", kind, name, err)
		case "23503":
			return fmt.Errorf("%s %q references a missing parent: %w", kind, name, err)
		}
	}
	return err
}

func (s *Store) FindFolderByName(ctx context.Context, name string) (*core.Folder, error) {
	r, err := s.q.GetFolderByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &core.Folder{ID: FromPgUUID(r.ID), Name: r.Name, ParentID: FromPgUUID(r.ParentID)}, nil
}

func (s *Store) CreateFolder(ctx context.Context, name string) (*core.Folder, error) {
	f := &core.Folder{ID: newID(), Name: name}
	if err := s.q.InsertFolder(ctx, FolderRow{ID: ToPgUUID(f.ID), Name: name}); err != nil {
		return nil, describe(err, "folder", name)
	}
	return f, nil
}

func (s *Store) FindProjectByName(ctx context.Context, name string) (*core.Project, error) {
	r, err := s.q.GetProjectByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return projectFromRow(r), nil
}

func (s *Store) CreateProject(ctx context.Context, name string, folder *core.Folder) (*core.Project, error) {
	p := &core.Project{ID: newID(), Name: name, Status: core.StatusActive}
	if folder != nil {
		p.FolderID = folder.ID
	}
	row := ProjectRow{ID: ToPgUUID(p.ID), Name: name, FolderID: ToPgUUID(p.FolderID), Status: string(p.Status)}
	if err := s.q.InsertProject(ctx, row); err != nil {
		return nil, describe(err, "project", name)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *core.Project) error {
	n, err := s.q.UpdateProject(ctx, ProjectRow{
		ID:               ToPgUUID(p.ID),
		Note:             p.Note,
		DueDate:          ToPgTimestamptz(p.DueDate),
		DeferDate:        ToPgTimestamptz(p.DeferDate),
		CompletionDate:   ToPgTimestamptz(p.CompletionDate),
		Flagged:          p.Flagged,
		EstimatedMinutes: ToPgInt4(p.EstimatedMinutes),
		Sequential:       p.Sequential,
		Status:           string(p.Status),
	})
	return checkUpdated(n, err, "project", p.ID)
}

func (s *Store) FindTagByName(ctx context.Context, name string) (*core.Tag, error) {
	r, err := s.q.GetTagByName(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &core.Tag{ID: FromPgUUID(r.ID), Name: r.Name}, nil
}

// EnsureTag returns the tag named name, creating it if needed. Imports never
// create tags; this is for seeding a store.
func (s *Store) EnsureTag(ctx context.Context, name string) (*core.Tag, error) {
	r, err := s.q.UpsertTag(ctx, TagRow{ID: ToPgUUID(newID()), Name: name})
	if err != nil {
		return nil, err
	}
	return &core.Tag{ID: FromPgUUID(r.ID), Name: r.Name}, nil
}

// ListTags returns all tags sorted by name.
func (s *Store) ListTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := s.q.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	tags := make([]core.Tag, len(rows))
	for i, r := range rows {
		tags[i] = core.Tag{ID: FromPgUUID(r.ID), Name: r.Name}
	}
	return tags, nil
}

func (s *Store) CreateTask(ctx context.Context, title string, project *core.Project) (*core.Task, error) {
	t := &core.Task{ID: newID(), Title: title}
	if project != nil {
		t.ProjectID = project.ID
	}
	if err := s.q.InsertTask(ctx, TaskRow{ID: ToPgUUID(t.ID), Title: title, ProjectID: ToPgUUID(t.ProjectID)}); err != nil {
		return nil, describe(err, "task", title)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t *core.Task) error {
	n, err := s.q.UpdateTask(ctx, TaskRow{
		ID:               ToPgUUID(t.ID),
		Note:             t.Note,
		DueDate:          ToPgTimestamptz(t.DueDate),
		DeferDate:        ToPgTimestamptz(t.DeferDate),
		Flagged:          t.Flagged,
		EstimatedMinutes: ToPgInt4(t.EstimatedMinutes),
	})
	return checkUpdated(n, err, "task", t.ID)
}

func (s *Store) AddTaskTag(ctx context.Context, task *core.Task, tag *core.Tag) error {
	return s.q.InsertTaskTag(ctx, ToPgUUID(task.ID), ToPgUUID(tag.ID))
}

func (s *Store) MarkTaskComplete(ctx context.Context, task *core.Task, at time.Time) error {
	n, err := s.q.CompleteTask(ctx, ToPgUUID(task.ID), ToPgTimestamptz(&at))
	if err := checkUpdated(n, err, "task", task.ID); err != nil {
		return err
	}
	task.Completed = true
	task.CompletionDate = &at
	return nil
}

// ListFolders returns all folders in creation order.
func (s *Store) ListFolders(ctx context.Context) ([]core.Folder, error) {
	rows, err := s.q.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	folders := make([]core.Folder, len(rows))
	for i, r := range rows {
		folders[i] = core.Folder{ID: FromPgUUID(r.ID), Name: r.Name, ParentID: FromPgUUID(r.ParentID)}
	}
	return folders, nil
}

// ListProjects returns all projects in creation order.
func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.q.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]core.Project, len(rows))
	for i, r := range rows {
		projects[i] = *projectFromRow(r)
	}
	return projects, nil
}

// Tasks returns all tasks in creation order.
func (s *Store) Tasks(ctx context.Context) ([]core.Task, error) {
	rows, err := s.q.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]core.Task, len(rows))
	for i, r := range rows {
		tasks[i] = core.Task{
			ID:               FromPgUUID(r.ID),
			Title:            r.Title,
			ProjectID:        FromPgUUID(r.ProjectID),
			Note:             r.Note,
			DueDate:          FromPgTimestamptz(r.DueDate),
			DeferDate:        FromPgTimestamptz(r.DeferDate),
			Flagged:          r.Flagged,
			EstimatedMinutes: FromPgInt4(r.EstimatedMinutes),
			Completed:        r.Completed,
			CompletionDate:   FromPgTimestamptz(r.CompletionDate),
		}
	}
	return tasks, nil
}

// TaskTags returns the names of the tags attached to a task, sorted.
func (s *Store) TaskTags(ctx context.Context, taskID string) ([]string, error) {
	return s.q.ListTaskTagNames(ctx, ToPgUUID(taskID))
}

func projectFromRow(r ProjectRow) *core.Project {
	return &core.Project{
		ID:               FromPgUUID(r.ID),
		Name:             r.Name,
		FolderID:         FromPgUUID(r.FolderID),
		Note:             r.Note,
		DueDate:          FromPgTimestamptz(r.DueDate),
		DeferDate:        FromPgTimestamptz(r.DeferDate),
		CompletionDate:   FromPgTimestamptz(r.CompletionDate),
		Flagged:          r.Flagged,
		EstimatedMinutes: FromPgInt4(r.EstimatedMinutes),
		Sequential:       r.Sequential,
		Status:           core.ParseProjectStatus(r.Status),
	}
}

func checkUpdated(n int64, err error, kind, id string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s does not exist", kind, id)
	}
	return nil
}
