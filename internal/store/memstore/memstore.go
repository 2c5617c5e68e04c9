// Package memstore is an in-memory task store.
//
// It backs tests, CLI dry runs and the "memory" database driver. Entities are
// kept in creation order and copied in and out, so callers never share state
// with the store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/google/uuid"
)

// Store implements core.Store in memory. It is safe for concurrent use.
type Store struct {
	unit sync.Mutex // serializes WithinRecord
	mu   sync.RWMutex

	folders  []*core.Folder
	projects []*core.Project
	tags     []*core.Tag
	tasks    []*core.Task
	taskTags map[string][]string // task ID -> tag IDs in attach order
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{taskTags: make(map[string][]string)}
}

func newID() string {
	return uuid.New().String()
}

func (s *Store) FindFolderByName(_ context.Context, name string) (*core.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.folders {
		if f.Name == name {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateFolder(_ context.Context, name string) (*core.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &core.Folder{ID: newID(), Name: name}
	s.folders = append(s.folders, f)
	c := *f
	return &c, nil
}

func (s *Store) FindProjectByName(_ context.Context, name string) (*core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projects {
		if p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateProject(_ context.Context, name string, folder *core.Folder) (*core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &core.Project{ID: newID(), Name: name, Status: core.StatusActive}
	if folder != nil {
		if s.folder(folder.ID) == nil {
			return nil, fmt.Errorf("folder %s does not exist", folder.ID)
		}
		p.FolderID = folder.ID
	}
	s.projects = append(s.projects, p)
	c := *p
	return &c, nil
}

func (s *Store) UpdateProject(_ context.Context, project *core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.projects {
		if p.ID == project.ID {
			c := *project
			s.projects[i] = &c
			return nil
		}
	}
	return fmt.Errorf("project %s does not exist", project.ID)
}

func (s *Store) FindTagByName(_ context.Context, name string) (*core.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tags {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

// EnsureTag returns the tag named name, creating it if needed. Imports never
// create tags; this is for seeding a store.
func (s *Store) EnsureTag(_ context.Context, name string) (*core.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tags {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	t := &core.Tag{ID: newID(), Name: name}
	s.tags = append(s.tags, t)
	c := *t
	return &c, nil
}

func (s *Store) CreateTask(_ context.Context, title string, project *core.Project) (*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &core.Task{ID: newID(), Title: title}
	if project != nil {
		if s.project(project.ID) == nil {
			return nil, fmt.Errorf("project %s does not exist", project.ID)
		}
		t.ProjectID = project.ID
	}
	s.tasks = append(s.tasks, t)
	c := *t
	return &c, nil
}

func (s *Store) UpdateTask(_ context.Context, task *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.task(task.ID)
	if t == nil {
		return fmt.Errorf("task %s does not exist", task.ID)
	}
	t.Note = task.Note
	t.DueDate = task.DueDate
	t.DeferDate = task.DeferDate
	t.Flagged = task.Flagged
	t.EstimatedMinutes = task.EstimatedMinutes
	return nil
}

func (s *Store) AddTaskTag(_ context.Context, task *core.Task, tag *core.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.task(task.ID) == nil {
		return fmt.Errorf("task %s does not exist", task.ID)
	}
	for _, id := range s.taskTags[task.ID] {
		if id == tag.ID {
			return nil
		}
	}
	s.taskTags[task.ID] = append(s.taskTags[task.ID], tag.ID)
	return nil
}

func (s *Store) MarkTaskComplete(_ context.Context, task *core.Task, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.task(task.ID)
	if t == nil {
		return fmt.Errorf("task %s does not exist", task.ID)
	}
	t.Completed = true
	t.CompletionDate = &at
	task.Completed = true
	task.CompletionDate = &at
	return nil
}

// WithinRecord runs fn against s and restores the previous contents when fn
// fails. Units run one at a time. A write made outside any unit while one is
// running is discarded with it on rollback.
func (s *Store) WithinRecord(_ context.Context, fn func(core.Store) error) error {
	s.unit.Lock()
	defer s.unit.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	folders  []*core.Folder
	projects []*core.Project
	tags     []*core.Tag
	tasks    []*core.Task
	taskTags map[string][]string
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tt := make(map[string][]string, len(s.taskTags))
	for id, tags := range s.taskTags {
		tt[id] = append([]string(nil), tags...)
	}
	return snapshot{
		folders:  clonePtrs(s.folders),
		projects: clonePtrs(s.projects),
		tags:     clonePtrs(s.tags),
		tasks:    clonePtrs(s.tasks),
		taskTags: tt,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = snap.folders
	s.projects = snap.projects
	s.tags = snap.tags
	s.tasks = snap.tasks
	s.taskTags = snap.taskTags
}

// ListFolders returns all folders in creation order.
func (s *Store) ListFolders(_ context.Context) ([]core.Folder, error) {
	return s.Folders(), nil
}

// ListProjects returns all projects in creation order.
func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	return s.Projects(), nil
}

// Folders returns all folders in creation order.
func (s *Store) Folders() []core.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.folders)
}

// Projects returns all projects in creation order.
func (s *Store) Projects() []core.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.projects)
}

// Tasks returns all tasks in creation order.
func (s *Store) Tasks() []core.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAll(s.tasks)
}

// ListTags returns all tags sorted by name.
func (s *Store) ListTags(_ context.Context) ([]core.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := copyAll(s.tags)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// TaskTags returns the names of the tags attached to a task, in attach order.
func (s *Store) TaskTags(taskID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, id := range s.taskTags[taskID] {
		for _, t := range s.tags {
			if t.ID == id {
				names = append(names, t.Name)
			}
		}
	}
	return names
}

func (s *Store) folder(id string) *core.Folder {
	for _, f := range s.folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Store) project(id string) *core.Project {
	for _, p := range s.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) task(id string) *core.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func clonePtrs[T any](src []*T) []*T {
	out := make([]*T, len(src))
	for i, v := range src {
		c := *v
		out[i] = &c
	}
	return out
}

func copyAll[T any](src []*T) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = *v
	}
	return out
}
