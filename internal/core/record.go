package core

// record.go converts mapped rows into typed import records.
//
// Conversions follow the export's conventions rather than generic parsing:
//   - Priority "high" (any case) means flagged; every other value does not
//   - Estimated Pomodoro counts pomodoros, not minutes
//   - A completion time is the only completion signal
//   - List Name "Inbox" is the export's name for "no project"

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPomodoroMinutes is the length of one pomodoro in the export.
const DefaultPomodoroMinutes = 25

// inboxProject is the list name the export uses for the default inbox.
const inboxProject = "inbox"

// BuildOptions controls record conversion.
type BuildOptions struct {
	// PomodoroMinutes multiplies the raw estimate. Zero means DefaultPomodoroMinutes.
	PomodoroMinutes int

	// HonorFolders keeps the Folder Name column. When false, projects are
	// always placed at the root.
	HonorFolders bool
}

// RecordBuilder turns data rows into ImportRecords using a fixed ColumnMap.
type RecordBuilder struct {
	cols  ColumnMap
	width int
	dates *DateParser
	opts  BuildOptions
}

// NewRecordBuilder creates a builder for rows laid out as cols.
func NewRecordBuilder(cols ColumnMap, dates *DateParser, opts BuildOptions) *RecordBuilder {
	if opts.PomodoroMinutes <= 0 {
		opts.PomodoroMinutes = DefaultPomodoroMinutes
	}
	return &RecordBuilder{
		cols:  cols,
		width: cols.Width(),
		dates: dates,
		opts:  opts,
	}
}

// Build converts one data row. It returns an error wrapping ErrShortRow when
// the row cannot index every mapped column, and ErrMissingTitle when the
// title is blank.
func (b *RecordBuilder) Build(row RawRow) (ImportRecord, error) {
	if len(row) < b.width {
		return ImportRecord{}, fmt.Errorf("%w: row has %d columns, expected %d", ErrShortRow, len(row), b.width)
	}

	rec := ImportRecord{
		Title:            b.cols.Value(row, FieldTitle),
		Note:             b.cols.Value(row, FieldNote),
		DueDate:          b.dates.ParseField(FieldDueDate, b.cols.Value(row, FieldDueDate)),
		DeferDate:        b.dates.ParseField(FieldDeferDate, b.cols.Value(row, FieldDeferDate)),
		CompletionDate:   b.dates.ParseField(FieldCompletionDate, b.cols.Value(row, FieldCompletionDate)),
		Flagged:          strings.EqualFold(b.cols.Value(row, FieldFlagged), "high"),
		Tags:             splitTags(b.cols.Value(row, FieldTags)),
		EstimatedMinutes: b.estimate(b.cols.Value(row, FieldEstimatedMinutes)),
		ProjectName:      b.cols.Value(row, FieldProjectName),
	}
	rec.IsCompleted = rec.CompletionDate != nil

	if strings.EqualFold(rec.ProjectName, inboxProject) {
		rec.ProjectName = ""
	}
	if b.opts.HonorFolders {
		rec.ProjectParentFolder = b.cols.Value(row, FieldProjectParentFolder)
	}

	if rec.Title == "" {
		return rec, ErrMissingTitle
	}
	return rec, nil
}

// estimate converts a pomodoro count to minutes. Non-numeric and negative
// values are absent, not zero.
func (b *RecordBuilder) estimate(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	minutes := n * b.opts.PomodoroMinutes
	return &minutes
}

// splitTags splits a comma-separated tag list. Blank parts and repeats are dropped.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, p)
	}
	return tags
}
