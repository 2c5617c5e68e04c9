package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/taskimport/internal/core"
)

// Options converts the import settings into pipeline options.
func (c *ImportConfig) Options() (core.Options, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return core.Options{}, fmt.Errorf("import location %q: %w", c.Location, err)
	}

	opts := core.DefaultOptions()
	opts.PreambleLines = c.PreambleLines
	opts.Build.PomodoroMinutes = c.PomodoroMinutes
	opts.Build.HonorFolders = c.HonorFolders
	opts.CompletionTime = core.ParseCompletionMode(c.CompletionTime)
	opts.ProjectSequential = strings.EqualFold(c.ProjectType, "sequential")
	opts.ProjectStatus = core.ParseProjectStatus(strings.ToLower(c.ProjectStatus))
	opts.Location = loc
	return opts, nil
}

// ServiceConfig converts the import settings into a core.ServiceConfig.
func (c *ImportConfig) ServiceConfig() (core.ServiceConfig, error) {
	opts, err := c.Options()
	if err != nil {
		return core.ServiceConfig{}, err
	}
	return core.ServiceConfig{
		Options:       opts,
		MaxFileSize:   c.MaxFileSize,
		MaxConcurrent: c.MaxConcurrent,
		MaxWaitTime:   c.MaxWaitTime,
		Timeout:       c.Timeout,
		HistorySize:   c.HistorySize,
	}, nil
}
