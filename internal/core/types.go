package core

import "time"

// RawRow is one tokenized CSV row. Fields are trimmed.
type RawRow []string

// Field names a logical import field.
type Field string

const (
	FieldTitle               Field = "title"
	FieldNote                Field = "note"
	FieldDueDate             Field = "dueDate"
	FieldDeferDate           Field = "deferDate"
	FieldCompletionDate      Field = "completionDate"
	FieldFlagged             Field = "flagged"
	FieldTags                Field = "tags"
	FieldEstimatedMinutes    Field = "estimatedMinutes"
	FieldProjectName         Field = "projectName"
	FieldProjectParentFolder Field = "projectParentFolder"
)

// Schema maps CSV header text to the field it carries.
type Schema map[string]Field

// ExportSchema is the header layout of the task export format.
var ExportSchema = Schema{
	"Title":              FieldTitle,
	"Content":            FieldNote,
	"Due Date":           FieldDueDate,
	"Start Date":         FieldDeferDate,
	"Completed Time":     FieldCompletionDate,
	"Priority":           FieldFlagged,
	"Tags":               FieldTags,
	"Estimated Pomodoro": FieldEstimatedMinutes,
	"List Name":          FieldProjectName,
	"Folder Name":        FieldProjectParentFolder,
}

// ImportRecord is one typed row ready for reconciliation.
type ImportRecord struct {
	Title               string
	Note                string
	DueDate             *time.Time
	DeferDate           *time.Time
	CompletionDate      *time.Time
	Flagged             bool
	Tags                []string
	EstimatedMinutes    *int
	ProjectName         string // empty means inbox
	ProjectParentFolder string
	IsCompleted         bool
}

// Folder is a named grouping container for projects.
type Folder struct {
	ID       string
	Name     string
	ParentID string // empty for root
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusOnHold    ProjectStatus = "on-hold"
	StatusCompleted ProjectStatus = "completed"
	StatusDropped   ProjectStatus = "dropped"
)

// ParseProjectStatus maps a status name to a ProjectStatus.
// Unknown names resolve to StatusActive.
func ParseProjectStatus(s string) ProjectStatus {
	switch ProjectStatus(s) {
	case StatusOnHold, StatusCompleted, StatusDropped:
		return ProjectStatus(s)
	default:
		return StatusActive
	}
}

// Project is a named container of tasks, optionally inside a folder.
type Project struct {
	ID               string
	Name             string
	FolderID         string // empty for root
	Note             string
	DueDate          *time.Time
	DeferDate        *time.Time
	CompletionDate   *time.Time
	Flagged          bool
	EstimatedMinutes *int
	Sequential       bool
	Status           ProjectStatus
}

// Tag is a named label attachable to tasks and projects.
type Tag struct {
	ID   string
	Name string
}

// Task is a single actionable item. An empty ProjectID places it in the inbox.
type Task struct {
	ID               string
	Title            string
	ProjectID        string
	Note             string
	DueDate          *time.Time
	DeferDate        *time.Time
	Flagged          bool
	EstimatedMinutes *int
	Completed        bool
	CompletionDate   *time.Time
}

// RunStatistics counts the outcome of one import run.
type RunStatistics struct {
	TotalRows    int `json:"totalRows"`
	CreatedTasks int `json:"createdTasks"`
	SkippedTasks int `json:"skippedTasks"`
}

// FailedRow describes a data row that did not produce a task.
type FailedRow struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Data   []string `json:"data,omitempty"`
}

// RunResult contains the final result of an import run.
type RunResult struct {
	RunID    string        `json:"runId"`
	FileName string        `json:"fileName"`
	Header   []string      `json:"header,omitempty"`
	Stats    RunStatistics `json:"stats"`
	Failures []FailedRow   `json:"failures,omitempty"`

	// CreatedFolders and CreatedProjects name the containers this run added,
	// in creation order. Reused containers are not listed.
	CreatedFolders  []string `json:"createdFolders,omitempty"`
	CreatedProjects []string `json:"createdProjects,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dryRun,omitempty"`
}
