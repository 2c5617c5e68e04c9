package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
)

func TestCheckFileType(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		wantErr bool
	}{
		{"export.csv", CSVTypes, false},
		{"EXPORT.CSV", CSVTypes, false},
		{"notes.txt", CSVTypes, true},
		{"csv", CSVTypes, true},
		{"anything.bin", nil, false},
	}

	for _, tt := range tests {
		err := CheckFileType(tt.name, tt.allowed)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckFileType(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, core.ErrUnsupportedFileType) {
			t.Errorf("CheckFileType(%q) error = %v, want ErrUnsupportedFileType", tt.name, err)
		}
	}
}

func TestStaticPicker(t *testing.T) {
	ctx := context.Background()

	got, err := StaticPicker{Path: "/tmp/export.csv"}.PickSingleFile(ctx, CSVTypes)
	if err != nil || got != "/tmp/export.csv" {
		t.Errorf("PickSingleFile() = %q, %v, want /tmp/export.csv", got, err)
	}

	if _, err := (StaticPicker{}).PickSingleFile(ctx, CSVTypes); !errors.Is(err, core.ErrNoFileSelected) {
		t.Errorf("empty path error = %v, want ErrNoFileSelected", err)
	}

	if _, err := (StaticPicker{Path: "notes.txt"}).PickSingleFile(ctx, CSVTypes); !errors.Is(err, core.ErrUnsupportedFileType) {
		t.Errorf("txt error = %v, want ErrUnsupportedFileType", err)
	}
}

func newPromptDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPromptPicker(t *testing.T) {
	dir := newPromptDir(t, "b.csv", "a.csv", "notes.txt")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"first", "1\n", "a.csv", nil},
		{"second", " 2 \n", "b.csv", nil},
		{"empty cancels", "\n", "", core.ErrNoFileSelected},
		{"q cancels", "q\n", "", core.ErrNoFileSelected},
		{"eof cancels", "", "", core.ErrNoFileSelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := PromptPicker{Dir: dir, In: strings.NewReader(tt.input), Out: &out}

			got, err := p.PickSingleFile(context.Background(), CSVTypes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PickSingleFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PickSingleFile() error = %v", err)
			}
			if want := filepath.Join(dir, tt.want); got != want {
				t.Errorf("PickSingleFile() = %q, want %q", got, want)
			}
			if strings.Contains(out.String(), "notes.txt") {
				t.Errorf("prompt listed a non-csv file: %q", out.String())
			}
		})
	}
}

func TestPromptPicker_InvalidChoice(t *testing.T) {
	dir := newPromptDir(t, "a.csv")
	p := PromptPicker{Dir: dir, In: strings.NewReader("7\n"), Out: &bytes.Buffer{}}

	if _, err := p.PickSingleFile(context.Background(), CSVTypes); err == nil {
		t.Error("PickSingleFile() expected error for out-of-range choice")
	}
}

func TestPromptPicker_NoFiles(t *testing.T) {
	p := PromptPicker{Dir: newPromptDir(t, "notes.txt"), In: strings.NewReader("1\n"), Out: &bytes.Buffer{}}

	if _, err := p.PickSingleFile(context.Background(), CSVTypes); !errors.Is(err, core.ErrNoFileSelected) {
		t.Errorf("PickSingleFile() error = %v, want ErrNoFileSelected", err)
	}
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(path, []byte("\xef\xbb\xbfTitle\nBuy milk\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	got, err := FileReader{}.ReadFileContents(ctx, path)
	if err != nil {
		t.Fatalf("ReadFileContents() error = %v", err)
	}
	if got != "Title\nBuy milk\n" {
		t.Errorf("ReadFileContents() = %q", got)
	}

	if _, err := (FileReader{MaxSize: 4}).ReadFileContents(ctx, path); !errors.Is(err, core.ErrFileTooLarge) {
		t.Errorf("oversized error = %v, want ErrFileTooLarge", err)
	}

	_, err = FileReader{}.ReadFileContents(ctx, filepath.Join(dir, "missing.csv"))
	if err == nil || core.MapError(err).Code != "FILE003" {
		t.Errorf("missing file error = %v, want FILE003", err)
	}
}

func TestPromptPicker_Cancelled(t *testing.T) {
	dir := newPromptDir(t, "a.csv")

	t.Run("before reading", func(t *testing.T) {
		in := strings.NewReader("1\n")
		p := PromptPicker{Dir: dir, In: in, Out: &bytes.Buffer{}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := p.PickSingleFile(ctx, CSVTypes); !errors.Is(err, context.Canceled) {
			t.Fatalf("PickSingleFile() error = %v, want context.Canceled", err)
		}
		if in.Len() != 3 {
			t.Errorf("cancelled prompt consumed input, %d bytes left", in.Len())
		}
	})

	t.Run("while waiting on a file", func(t *testing.T) {
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatal(err)
		}
		defer r.Close()

		p := PromptPicker{Dir: dir, In: r, Out: &bytes.Buffer{}}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := p.PickSingleFile(ctx, CSVTypes); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("PickSingleFile() error = %v, want context.DeadlineExceeded", err)
		}
		// Unblock the reader left waiting on the pipe.
		w.Close()
	})
}
