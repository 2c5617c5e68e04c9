package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var fullHeader = RawRow{
	"Folder Name", "List Name", "Title", "Tags", "Content", "Is Check list",
	"Start Date", "Due Date", "Priority", "Estimated Pomodoro", "Completed Time",
}

func newTestBuilder(opts BuildOptions) *RecordBuilder {
	return NewRecordBuilder(MapColumns(fullHeader, ExportSchema), NewDateParser(time.UTC, nil), opts)
}

func intPtr(n int) *int { return &n }

func TestRecordBuilder_Build(t *testing.T) {
	b := newTestBuilder(BuildOptions{HonorFolders: true})

	row := RawRow{
		"Home", "Errands", "Buy milk", "errand, quick,errand, ", "two litres", "N",
		"1/3/25", "2025-01-04", "HIGH", "3", "",
	}

	got, err := b.Build(row)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	defer1 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	want := ImportRecord{
		Title:               "Buy milk",
		Note:                "two litres",
		DueDate:             &due,
		DeferDate:           &defer1,
		Flagged:             true,
		Tags:                []string{"errand", "quick"},
		EstimatedMinutes:    intPtr(75),
		ProjectName:         "Errands",
		ProjectParentFolder: "Home",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %+v, want %+v", got, want)
	}
}

func TestRecordBuilder_Fields(t *testing.T) {
	b := newTestBuilder(BuildOptions{HonorFolders: true})

	base := func() RawRow {
		return RawRow{"", "", "Task", "", "", "", "", "", "", "", ""}
	}

	t.Run("flagged only for high", func(t *testing.T) {
		for _, p := range []string{"high", "High", "HIGH"} {
			row := base()
			row[8] = p
			rec, _ := b.Build(row)
			if !rec.Flagged {
				t.Errorf("Priority %q: Flagged = false, want true", p)
			}
		}
		for _, p := range []string{"", "medium", "low", "highest", "1"} {
			row := base()
			row[8] = p
			rec, _ := b.Build(row)
			if rec.Flagged {
				t.Errorf("Priority %q: Flagged = true, want false", p)
			}
		}
	})

	t.Run("estimate", func(t *testing.T) {
		tests := []struct {
			raw  string
			want *int
		}{
			{"3", intPtr(75)},
			{"0", intPtr(0)},
			{"", nil},
			{"abc", nil},
			{"1.5", nil},
			{"-2", nil},
		}
		for _, tt := range tests {
			row := base()
			row[9] = tt.raw
			rec, _ := b.Build(row)
			if !reflect.DeepEqual(rec.EstimatedMinutes, tt.want) {
				t.Errorf("Estimated Pomodoro %q: EstimatedMinutes = %v, want %v", tt.raw, rec.EstimatedMinutes, tt.want)
			}
		}
	})

	t.Run("blank tags", func(t *testing.T) {
		row := base()
		row[3] = " , ,"
		rec, _ := b.Build(row)
		if rec.Tags != nil {
			t.Errorf("Tags = %q, want nil", rec.Tags)
		}
	})

	t.Run("completion sets completed", func(t *testing.T) {
		row := base()
		row[10] = "2025-01-10T12:00:00Z"
		rec, _ := b.Build(row)
		if !rec.IsCompleted || rec.CompletionDate == nil {
			t.Errorf("IsCompleted = %v, CompletionDate = %v, want completed", rec.IsCompleted, rec.CompletionDate)
		}
	})

	t.Run("unparseable completion is not completed", func(t *testing.T) {
		row := base()
		row[10] = "yesterday"
		rec, _ := b.Build(row)
		if rec.IsCompleted {
			t.Error("IsCompleted = true, want false")
		}
	})

	t.Run("inbox normalized", func(t *testing.T) {
		for _, name := range []string{"Inbox", "inbox", "INBOX"} {
			row := base()
			row[1] = name
			rec, _ := b.Build(row)
			if rec.ProjectName != "" {
				t.Errorf("List Name %q: ProjectName = %q, want empty", name, rec.ProjectName)
			}
		}
	})
}

func TestRecordBuilder_IgnoresFolders(t *testing.T) {
	b := newTestBuilder(BuildOptions{HonorFolders: false})

	rec, err := b.Build(RawRow{"Home", "Errands", "Task", "", "", "", "", "", "", "", ""})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rec.ProjectParentFolder != "" {
		t.Errorf("ProjectParentFolder = %q, want empty", rec.ProjectParentFolder)
	}
	if rec.ProjectName != "Errands" {
		t.Errorf("ProjectName = %q, want Errands", rec.ProjectName)
	}
}

func TestRecordBuilder_PomodoroMinutes(t *testing.T) {
	b := newTestBuilder(BuildOptions{PomodoroMinutes: 30})

	rec, _ := b.Build(RawRow{"", "", "Task", "", "", "", "", "", "", "2", ""})
	if rec.EstimatedMinutes == nil || *rec.EstimatedMinutes != 60 {
		t.Errorf("EstimatedMinutes = %v, want 60", rec.EstimatedMinutes)
	}
}

func TestRecordBuilder_Rejects(t *testing.T) {
	b := newTestBuilder(BuildOptions{})

	tests := []struct {
		name    string
		row     RawRow
		wantErr error
	}{
		{"short row", RawRow{"Home", "Errands", "Buy milk"}, ErrShortRow},
		{"empty row", RawRow{""}, ErrShortRow},
		{"missing title", RawRow{"Home", "Errands", "", "", "", "", "", "", "", "", ""}, ErrMissingTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.row)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordBuilder_WidthIsHighestMappedColumn(t *testing.T) {
	// Title is the only mapped column; trailing unmapped columns may be absent.
	cols := MapColumns(RawRow{"Kind", "Title", "Extra", "More"}, ExportSchema)
	b := NewRecordBuilder(cols, NewDateParser(time.UTC, nil), BuildOptions{})

	rec, err := b.Build(RawRow{"x", "Task"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if rec.Title != "Task" {
		t.Errorf("Title = %q, want Task", rec.Title)
	}
}
