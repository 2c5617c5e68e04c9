package core

import (
	"context"
	"time"
)

// Store is the capability surface the reconciler needs from a task store.
//
// Find* methods return (nil, nil) when no entity has the given name. Names are
// matched exactly. Implementations live under internal/store.
type Store interface {
	FindFolderByName(ctx context.Context, name string) (*Folder, error)
	CreateFolder(ctx context.Context, name string) (*Folder, error)

	FindProjectByName(ctx context.Context, name string) (*Project, error)
	// CreateProject creates a project inside folder, or at the root when folder is nil.
	CreateProject(ctx context.Context, name string, folder *Folder) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	FindTagByName(ctx context.Context, name string) (*Tag, error)

	// CreateTask creates a task inside project, or in the inbox when project is nil.
	CreateTask(ctx context.Context, title string, project *Project) (*Task, error)
	// UpdateTask persists note, dates, flag and estimate.
	UpdateTask(ctx context.Context, task *Task) error
	AddTaskTag(ctx context.Context, task *Task, tag *Tag) error
	MarkTaskComplete(ctx context.Context, task *Task, at time.Time) error

	// WithinRecord runs fn as one unit of work. Every write fn makes through
	// the Store it is given is kept when fn returns nil and discarded when it
	// returns an error.
	WithinRecord(ctx context.Context, fn func(Store) error) error
}
