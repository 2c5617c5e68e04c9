package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/JonMunkholm/taskimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultHistorySize is how many finished runs a Service remembers.
const DefaultHistorySize = 50

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Options       Options
	MaxFileSize   int64         // raw input cap; zero means unlimited
	MaxConcurrent int           // simultaneous runs; zero means DefaultMaxConcurrentImports
	MaxWaitTime   time.Duration // wait for a run slot; zero means DefaultMaxWaitTime
	Timeout       time.Duration // per-run deadline; zero means none
	HistorySize   int           // zero means DefaultHistorySize
	DryRun        bool          // marks results as produced against a scratch store
}

// Service runs imports against one store and keeps a bounded run history.
// It is safe for concurrent use; runs themselves are gated by an ImportLimiter.
type Service struct {
	store   Store
	cfg     ServiceConfig
	limiter *ImportLimiter

	mu      sync.RWMutex
	history []*RunResult // oldest first
}

// NewService creates a Service over store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
	}
}

// ImportReader reads an export from r and imports it.
func (s *Service) ImportReader(ctx context.Context, fileName string, r io.Reader) (*RunResult, error) {
	text, err := ReadInput(r, s.cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return s.ImportText(ctx, fileName, text)
}

// ImportText imports an export already held in memory.
func (s *Service) ImportText(ctx context.Context, fileName, text string) (*RunResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	logger := logging.WithFields(ctx, "run_id", runID, "file", fileName)
	logger.Info("import started", "dry_run", s.cfg.DryRun)

	result, err := NewReconciler(s.store, s.cfg.Options, logger).Run(ctx, text)
	if err != nil {
		logger.Error("import failed", "error", err)
		return nil, err
	}

	result.RunID = runID
	result.FileName = fileName
	result.DryRun = s.cfg.DryRun
	s.remember(result)
	return result, nil
}

func (s *Service) remember(result *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, result)
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append([]*RunResult(nil), s.history[over:]...)
	}
}

// Runs returns remembered runs, newest first.
func (s *Service) Runs() []RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunResult, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		runs = append(runs, *s.history[i])
	}
	return runs
}

// Run returns a remembered run by ID.
func (s *Service) Run(runID string) (RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.history {
		if r.RunID == runID {
			return *r, nil
		}
	}
	return RunResult{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// ActiveImports returns the number of runs in progress.
func (s *Service) ActiveImports() int {
	return s.limiter.Active()
}

// MaxImports returns how many runs may hold a slot at once.
func (s *Service) MaxImports() int {
	return s.limiter.MaxConcurrent()
}

// WaitForImports blocks until in-progress runs finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
