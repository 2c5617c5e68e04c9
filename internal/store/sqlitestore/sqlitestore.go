// Package sqlitestore is a task store in a single SQLite file.
//
// It uses the pure-Go modernc.org/sqlite driver, so binaries stay cgo free.
// Timestamps are stored as RFC 3339 text in UTC.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		parent_id TEXT REFERENCES folders(id)
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		folder_id TEXT REFERENCES folders(id),
		note TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		defer_date TEXT,
		completion_date TEXT,
		flagged INTEGER NOT NULL DEFAULT 0,
		estimated_minutes INTEGER,
		sequential INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		project_id TEXT REFERENCES projects(id),
		note TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		defer_date TEXT,
		flagged INTEGER NOT NULL DEFAULT 0,
		estimated_minutes INTEGER,
		completed INTEGER NOT NULL DEFAULT 0,
		completion_date TEXT
	);

	CREATE TABLE IF NOT EXISTS task_tags (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements core.Store on SQLite.
type Store struct {
	db *sql.DB
	q  querier
	tx *sql.Tx // set on the Store handed to a WithinRecord func
}

var _ core.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps pragmas in effect and avoids SQLITE_BUSY between
	// writers of the same process.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// WithinRecord runs fn inside a transaction and commits only when fn
// succeeds. Called on a Store that is already inside one, it nests with a
// savepoint.
func (s *Store) WithinRecord(ctx context.Context, fn func(core.Store) error) error {
	if s.tx != nil {
		return s.withinSavepoint(ctx, fn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func (s *Store) withinSavepoint(ctx context.Context, fn func(core.Store) error) error {
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT record"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(s); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT record"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT record"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindFolderByName(ctx context.Context, name string) (*core.Folder, error) {
	var (
		f      core.Folder
		parent sql.NullString
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM folders WHERE name = ?`, name,
	).Scan(&f.ID, &f.Name, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ParentID = parent.String
	return &f, nil
}

func (s *Store) CreateFolder(ctx context.Context, name string) (*core.Folder, error) {
	f := &core.Folder{ID: uuid.New().String(), Name: name}
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO folders (id, name) VALUES (?, ?)`, f.ID, f.Name,
	); err != nil {
		return nil, err
	}
	return f, nil
}

const projectColumns = `id, name, folder_id, note, due_date, defer_date, completion_date,
	flagged, estimated_minutes, sequential, status`

func (s *Store) FindProjectByName(ctx context.Context, name string) (*core.Project, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) CreateProject(ctx context.Context, name string, folder *core.Folder) (*core.Project, error) {
	p := &core.Project{ID: uuid.New().String(), Name: name, Status: core.StatusActive}
	if folder != nil {
		p.FolderID = folder.ID
	}
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (id, name, folder_id, status) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, nullString(p.FolderID), string(p.Status),
	); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *core.Project) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE projects SET note = ?, due_date = ?, defer_date = ?, completion_date = ?,
			flagged = ?, estimated_minutes = ?, sequential = ?, status = ?
		WHERE id = ?`,
		p.Note, nullTime(p.DueDate), nullTime(p.DeferDate), nullTime(p.CompletionDate),
		p.Flagged, nullInt(p.EstimatedMinutes), p.Sequential, string(p.Status), p.ID,
	)
	return checkUpdated(res, err, "project", p.ID)
}

func (s *Store) FindTagByName(ctx context.Context, name string) (*core.Tag, error) {
	var t core.Tag
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE name = ?`, name,
	).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// EnsureTag returns the tag named name, creating it if needed. Imports never
// create tags; this is for seeding a store.
func (s *Store) EnsureTag(ctx context.Context, name string) (*core.Tag, error) {
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), name,
	); err != nil {
		return nil, err
	}
	return s.FindTagByName(ctx, name)
}

// ListTags returns all tags sorted by name.
func (s *Store) ListTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []core.Tag
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, title string, project *core.Project) (*core.Task, error) {
	t := &core.Task{ID: uuid.New().String(), Title: title}
	if project != nil {
		t.ProjectID = project.ID
	}
	if _, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (id, title, project_id) VALUES (?, ?, ?)`,
		t.ID, t.Title, nullString(t.ProjectID),
	); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t *core.Task) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE tasks SET note = ?, due_date = ?, defer_date = ?, flagged = ?, estimated_minutes = ?
		WHERE id = ?`,
		t.Note, nullTime(t.DueDate), nullTime(t.DeferDate), t.Flagged, nullInt(t.EstimatedMinutes), t.ID,
	)
	return checkUpdated(res, err, "task", t.ID)
}

func (s *Store) AddTaskTag(ctx context.Context, task *core.Task, tag *core.Tag) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		task.ID, tag.ID,
	)
	return err
}

func (s *Store) MarkTaskComplete(ctx context.Context, task *core.Task, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE tasks SET completed = 1, completion_date = ? WHERE id = ?`,
		nullTime(&at), task.ID,
	)
	if err := checkUpdated(res, err, "task", task.ID); err != nil {
		return err
	}
	task.Completed = true
	task.CompletionDate = &at
	return nil
}

// ListFolders returns all folders in creation order.
func (s *Store) ListFolders(ctx context.Context) ([]core.Folder, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, parent_id FROM folders ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []core.Folder
	for rows.Next() {
		var (
			f      core.Folder
			parent sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Name, &parent); err != nil {
			return nil, err
		}
		f.ParentID = parent.String
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// ListProjects returns all projects in creation order.
func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// Tasks returns all tasks in creation order.
func (s *Store) Tasks(ctx context.Context) ([]core.Task, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, title, project_id, note, due_date, defer_date, flagged,
			estimated_minutes, completed, completion_date
		FROM tasks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		var (
			t                     core.Task
			project               sql.NullString
			due, deferred, closed sql.NullString
			estimate              sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Title, &project, &t.Note, &due, &deferred,
			&t.Flagged, &estimate, &t.Completed, &closed); err != nil {
			return nil, err
		}
		t.ProjectID = project.String
		if t.DueDate, err = parseTime(due); err != nil {
			return nil, err
		}
		if t.DeferDate, err = parseTime(deferred); err != nil {
			return nil, err
		}
		if t.CompletionDate, err = parseTime(closed); err != nil {
			return nil, err
		}
		t.EstimatedMinutes = intPtr(estimate)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskTags returns the names of the tags attached to a task, sorted.
func (s *Store) TaskTags(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT tags.name FROM task_tags
		JOIN tags ON tags.id = task_tags.tag_id
		WHERE task_tags.task_id = ?
		ORDER BY tags.name`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*core.Project, error) {
	var (
		p                     core.Project
		folder                sql.NullString
		due, deferred, closed sql.NullString
		estimate              sql.NullInt64
		status                string
	)
	if err := row.Scan(&p.ID, &p.Name, &folder, &p.Note, &due, &deferred, &closed,
		&p.Flagged, &estimate, &p.Sequential, &status); err != nil {
		return nil, err
	}

	var err error
	p.FolderID = folder.String
	if p.DueDate, err = parseTime(due); err != nil {
		return nil, err
	}
	if p.DeferDate, err = parseTime(deferred); err != nil {
		return nil, err
	}
	if p.CompletionDate, err = parseTime(closed); err != nil {
		return nil, err
	}
	p.EstimatedMinutes = intPtr(estimate)
	p.Status = core.ParseProjectStatus(status)
	return &p, nil
}

func checkUpdated(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s does not exist", kind, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("stored time %q: %w", s.String, err)
	}
	return &t, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
