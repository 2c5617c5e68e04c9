// Package source acquires export files: choosing one and reading it.
//
// Picking a file is the only step of an import that waits on the outside
// world. It sits behind Picker so that the CLI can prompt, tests can inject a
// path, and the web surface can skip it entirely.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/taskimport/internal/core"
)

// CSVTypes is the allowed-types list for task exports.
var CSVTypes = []string{".csv"}

// Picker chooses a single file. It returns core.ErrNoFileSelected when the
// user declines to choose.
type Picker interface {
	PickSingleFile(ctx context.Context, allowedTypes []string) (string, error)
}

// CheckFileType returns an error wrapping core.ErrUnsupportedFileType unless
// name has one of the allowed extensions. Matching ignores case. An empty
// allowed list accepts everything.
func CheckFileType(name string, allowedTypes []string) error {
	if len(allowedTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, t := range allowedTypes {
		if ext == strings.ToLower(t) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", core.ErrUnsupportedFileType, filepath.Base(name), strings.Join(allowedTypes, ", "))
}

// StaticPicker always picks Path. An empty Path means nothing was selected.
type StaticPicker struct {
	Path string
}

func (p StaticPicker) PickSingleFile(ctx context.Context, allowedTypes []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Path == "" {
		return "", core.ErrNoFileSelected
	}
	if err := CheckFileType(p.Path, allowedTypes); err != nil {
		return "", err
	}
	return p.Path, nil
}

// PromptPicker lists the matching files in Dir and asks for a choice on In.
// An empty answer, "q" or end of input selects nothing.
type PromptPicker struct {
	Dir string
	In  io.Reader
	Out io.Writer
}

func (p PromptPicker) PickSingleFile(ctx context.Context, allowedTypes []string) (string, error) {
	files, err := p.candidates(allowedTypes)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		fmt.Fprintf(p.Out, "No %s files found in %s\n", strings.Join(allowedTypes, "/"), p.Dir)
		return "", core.ErrNoFileSelected
	}

	for i, f := range files {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, f)
	}
	fmt.Fprint(p.Out, "Select a file (number, empty to cancel): ")

	answer, err := p.readAnswer(ctx)
	if err != nil {
		return "", err
	}

	if answer == "" || strings.EqualFold(answer, "q") {
		return "", core.ErrNoFileSelected
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(files) {
		return "", fmt.Errorf("invalid selection %q", answer)
	}
	return filepath.Join(p.Dir, files[n-1]), nil
}

// readAnswer reads one line from In. Readers backed by a file (a terminal or
// pipe) are read on a separate goroutine so that ctx can interrupt the wait.
// A read on a file cannot itself be cancelled, so after cancellation that
// goroutine stays blocked until the next line or EOF; the CLI exits right
// after, which ends it. Other readers are read in place.
func (p PromptPicker) readAnswer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, ok := p.In.(*os.File); !ok {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		return strings.TrimSpace(line), nil
	}

	answers := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answers <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case answer := <-answers:
		return answer, nil
	}
}

func (p PromptPicker) candidates(allowedTypes []string) ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("read file: list %s: %w", p.Dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if CheckFileType(e.Name(), allowedTypes) == nil {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileReader reads export files from disk.
type FileReader struct {
	// MaxSize caps the raw file size; zero means unlimited.
	MaxSize int64
}

// ReadFileContents returns the decoded text of the file at path.
func (r FileReader) ReadFileContents(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	defer f.Close()

	text, err := core.ReadInput(f, r.MaxSize)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return text, nil
}
