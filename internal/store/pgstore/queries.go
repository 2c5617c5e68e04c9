package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries holds the SQL for the task tables.
type Queries struct {
	db DBTX
}

// New returns Queries running against db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Schema creates the task tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS folders (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	parent_id UUID REFERENCES folders(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	folder_id UUID REFERENCES folders(id),
	note TEXT NOT NULL DEFAULT '',
	due_date TIMESTAMPTZ,
	defer_date TIMESTAMPTZ,
	completion_date TIMESTAMPTZ,
	flagged BOOLEAN NOT NULL DEFAULT false,
	estimated_minutes INTEGER,
	sequential BOOLEAN NOT NULL DEFAULT false,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tags (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tasks (
	id UUID PRIMARY KEY,
	seq BIGSERIAL,
	title TEXT NOT NULL,
	project_id UUID REFERENCES projects(id),
	note TEXT NOT NULL DEFAULT '',
	due_date TIMESTAMPTZ,
	defer_date TIMESTAMPTZ,
	flagged BOOLEAN NOT NULL DEFAULT false,
	estimated_minutes INTEGER,
	completed BOOLEAN NOT NULL DEFAULT false,
	completion_date TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS task_tags (
	task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
`

// Migrate applies Schema.
func (q *Queries) Migrate(ctx context.Context) error {
	_, err := q.db.Exec(ctx, Schema)
	return err
}

type FolderRow struct {
	ID       pgtype.UUID
	Name     string
	ParentID pgtype.UUID
}

const getFolderByName = `SELECT id, name, parent_id FROM folders WHERE name = $1`

func (q *Queries) GetFolderByName(ctx context.Context, name string) (FolderRow, error) {
	var r FolderRow
	err := q.db.QueryRow(ctx, getFolderByName, name).Scan(&r.ID, &r.Name, &r.ParentID)
	return r, err
}

const insertFolder = `INSERT INTO folders (id, name, parent_id) VALUES ($1, $2, $3)`

func (q *Queries) InsertFolder(ctx context.Context, r FolderRow) error {
	_, err := q.db.Exec(ctx, insertFolder, r.ID, r.Name, r.ParentID)
	return err
}

const listFolders = `SELECT id, name, parent_id FROM folders ORDER BY created_at, name`

func (q *Queries) ListFolders(ctx context.Context) ([]FolderRow, error) {
	rows, err := q.db.Query(ctx, listFolders)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (FolderRow, error) {
		var r FolderRow
		err := row.Scan(&r.ID, &r.Name, &r.ParentID)
		return r, err
	})
}

type ProjectRow struct {
	ID               pgtype.UUID
	Name             string
	FolderID         pgtype.UUID
	Note             string
	DueDate          pgtype.Timestamptz
	DeferDate        pgtype.Timestamptz
	CompletionDate   pgtype.Timestamptz
	Flagged          bool
	EstimatedMinutes pgtype.Int4
	Sequential       bool
	Status           string
}

func (r *ProjectRow) scan(row pgx.Row) error {
	return row.Scan(&r.ID, &r.Name, &r.FolderID, &r.Note, &r.DueDate, &r.DeferDate,
		&r.CompletionDate, &r.Flagged, &r.EstimatedMinutes, &r.Sequential, &r.Status)
}

const projectColumns = `id, name, folder_id, note, due_date, defer_date, completion_date,
	flagged, estimated_minutes, sequential, status`

const getProjectByName = `SELECT ` + projectColumns + ` FROM projects WHERE name = $1`

func (q *Queries) GetProjectByName(ctx context.Context, name string) (ProjectRow, error) {
	var r ProjectRow
	err := r.scan(q.db.QueryRow(ctx, getProjectByName, name))
	return r, err
}

const insertProject = `INSERT INTO projects (id, name, folder_id, status) VALUES ($1, $2, $3, $4)`

func (q *Queries) InsertProject(ctx context.Context, r ProjectRow) error {
	_, err := q.db.Exec(ctx, insertProject, r.ID, r.Name, r.FolderID, r.Status)
	return err
}

const updateProject = `
UPDATE projects SET note = $2, due_date = $3, defer_date = $4, completion_date = $5,
	flagged = $6, estimated_minutes = $7, sequential = $8, status = $9
WHERE id = $1`

func (q *Queries) UpdateProject(ctx context.Context, r ProjectRow) (int64, error) {
	tag, err := q.db.Exec(ctx, updateProject, r.ID, r.Note, r.DueDate, r.DeferDate,
		r.CompletionDate, r.Flagged, r.EstimatedMinutes, r.Sequential, r.Status)
	return tag.RowsAffected(), err
}

const listProjects = `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at, name`

func (q *Queries) ListProjects(ctx context.Context) ([]ProjectRow, error) {
	rows, err := q.db.Query(ctx, listProjects)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProjectRow, error) {
		var r ProjectRow
		err := r.scan(row)
		return r, err
	})
}

type TagRow struct {
	ID   pgtype.UUID
	Name string
}

const getTagByName = `SELECT id, name FROM tags WHERE name = $1`

func (q *Queries) GetTagByName(ctx context.Context, name string) (TagRow, error) {
	var r TagRow
	err := q.db.QueryRow(ctx, getTagByName, name).Scan(&r.ID, &r.Name)
	return r, err
}

const upsertTag = `
INSERT INTO tags (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name`

func (q *Queries) UpsertTag(ctx context.Context, r TagRow) (TagRow, error) {
	var out TagRow
	err := q.db.QueryRow(ctx, upsertTag, r.ID, r.Name).Scan(&out.ID, &out.Name)
	return out, err
}

const listTags = `SELECT id, name FROM tags ORDER BY name`

func (q *Queries) ListTags(ctx context.Context) ([]TagRow, error) {
	rows, err := q.db.Query(ctx, listTags)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TagRow, error) {
		var r TagRow
		err := row.Scan(&r.ID, &r.Name)
		return r, err
	})
}

type TaskRow struct {
	ID               pgtype.UUID
	Title            string
	ProjectID        pgtype.UUID
	Note             string
	DueDate          pgtype.Timestamptz
	DeferDate        pgtype.Timestamptz
	Flagged          bool
	EstimatedMinutes pgtype.Int4
	Completed        bool
	CompletionDate   pgtype.Timestamptz
}

const insertTask = `INSERT INTO tasks (id, title, project_id) VALUES ($1, $2, $3)`

func (q *Queries) InsertTask(ctx context.Context, r TaskRow) error {
	_, err := q.db.Exec(ctx, insertTask, r.ID, r.Title, r.ProjectID)
	return err
}

const updateTask = `
UPDATE tasks SET note = $2, due_date = $3, defer_date = $4, flagged = $5, estimated_minutes = $6
WHERE id = $1`

func (q *Queries) UpdateTask(ctx context.Context, r TaskRow) (int64, error) {
	tag, err := q.db.Exec(ctx, updateTask, r.ID, r.Note, r.DueDate, r.DeferDate, r.Flagged, r.EstimatedMinutes)
	return tag.RowsAffected(), err
}

const completeTask = `UPDATE tasks SET completed = true, completion_date = $2 WHERE id = $1`

func (q *Queries) CompleteTask(ctx context.Context, id pgtype.UUID, at pgtype.Timestamptz) (int64, error) {
	tag, err := q.db.Exec(ctx, completeTask, id, at)
	return tag.RowsAffected(), err
}

const listTasks = `
SELECT id, title, project_id, note, due_date, defer_date, flagged,
	estimated_minutes, completed, completion_date
FROM tasks ORDER BY seq`

func (q *Queries) ListTasks(ctx context.Context) ([]TaskRow, error) {
	rows, err := q.db.Query(ctx, listTasks)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TaskRow, error) {
		var r TaskRow
		err := row.Scan(&r.ID, &r.Title, &r.ProjectID, &r.Note, &r.DueDate, &r.DeferDate,
			&r.Flagged, &r.EstimatedMinutes, &r.Completed, &r.CompletionDate)
		return r, err
	})
}

const insertTaskTag = `INSERT INTO task_tags (task_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

func (q *Queries) InsertTaskTag(ctx context.Context, taskID, tagID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, insertTaskTag, taskID, tagID)
	return err
}

const listTaskTagNames = `
SELECT tags.name FROM task_tags
JOIN tags ON tags.id = task_tags.tag_id
WHERE task_tags.task_id = $1
ORDER BY tags.name`

func (q *Queries) ListTaskTagNames(ctx context.Context, taskID pgtype.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listTaskTagNames, taskID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
