package download

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/model"
	"github.com/ytget/yt-downloader-web/internal/platform"
	"github.com/ytget/yt-downloader-web/internal/progress"
)

const batchIDPrefix = "batch-"

// Defaults fill in what a start request leaves out
type Defaults struct {
	OutputFolder string
	Resolution   string
}

// Service handles download operations of every session
type Service struct {
	orchestrator *Orchestrator
	emitter      progress.Emitter
	logger       hclog.Logger
	defaults     Defaults

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tasks      map[string]*model.BatchTask
	cancels    map[string]context.CancelFunc
	tasksMutex sync.RWMutex
	onUpdate   func(model.BatchTask)
}

// NewService creates a new download service
func NewService(orchestrator *Orchestrator, emitter progress.Emitter, defaults Defaults, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		orchestrator: orchestrator,
		emitter:      emitter,
		logger:       logger,
		defaults:     defaults,
		ctx:          ctx,
		cancel:       cancel,
		tasks:        make(map[string]*model.BatchTask),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// SetUpdateCallback sets the callback function for task updates. It receives
// a snapshot and is called without the service lock held.
func (s *Service) SetUpdateCallback(callback func(model.BatchTask)) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	s.onUpdate = callback
}

// ResolveMetadata resolves url in the background and answers with metadata_result
func (s *Service) ResolveMetadata(sessionID, url string) {
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()

		var ev model.MetadataResultEvent
		if strings.TrimSpace(url) == "" {
			ev = model.NewMetadataResultError(ErrEmptyURL)
		} else if meta, err := s.orchestrator.Resolver().Resolve(s.ctx, url); err != nil {
			s.logger.Warn("metadata lookup failed", "session", sessionID, "url", url, "error", err)
			ev = model.NewMetadataResultError(unwrapResolution(err))
		} else {
			ev = model.NewMetadataResult(meta)
		}

		if err := s.emitter.Emit(sessionID, ev); err != nil {
			s.logger.Debug("metadata result dropped", "session", sessionID, "error", err)
		}
	}()
}

// StartDownload validates req, applies defaults and launches the batch
func (s *Service) StartDownload(sessionID string, req model.DownloadRequest) (*model.BatchTask, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, ErrEmptyURL
	}
	if req.OutputFolder == "" {
		req.OutputFolder = s.defaults.OutputFolder
	}
	if req.Resolution == "" {
		req.Resolution = s.defaults.Resolution
	}
	if err := platform.CreateDirectoryIfNotExists(req.OutputFolder); err != nil {
		return nil, fmt.Errorf("prepare output folder: %w", err)
	}

	s.tasksMutex.Lock()
	if s.ctx.Err() != nil {
		s.tasksMutex.Unlock()
		return nil, s.ctx.Err()
	}

	// Check for duplicate URLs
	for _, task := range s.tasks {
		if task.SessionID == sessionID && task.URL == req.URL && task.Status.IsActive() {
			s.tasksMutex.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBatch, req.URL)
		}
	}

	task := &model.BatchTask{
		ID:        generateBatchID(),
		SessionID: sessionID,
		URL:       req.URL,
		Status:    model.BatchStatusResolving,
		StartedAt: time.Now(),
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.tasks[task.ID] = task
	s.cancels[task.ID] = cancel
	snapshot := *task
	s.wg.Add(1)
	s.tasksMutex.Unlock()

	s.logger.Info("batch started", "id", task.ID, "session", sessionID, "url", req.URL)

	go s.runBatch(ctx, cancel, task, req)

	return &snapshot, nil
}

// runBatch runs the orchestrator and mirrors its progress into the task
func (s *Service) runBatch(ctx context.Context, cancel context.CancelFunc, task *model.BatchTask, req model.DownloadRequest) {
	defer s.wg.Done()
	defer cancel()

	res := s.orchestrator.run(ctx, task.SessionID, req, func(r Result) {
		s.updateTask(task, r, false)
	})
	s.updateTask(task, *res, true)

	s.tasksMutex.Lock()
	delete(s.cancels, task.ID)
	s.tasksMutex.Unlock()
}

func (s *Service) updateTask(task *model.BatchTask, r Result, final bool) {
	s.tasksMutex.Lock()
	task.Status = r.Status
	task.Total = r.Total
	task.Succeeded = r.Succeeded
	task.Failed = r.Failed
	task.Skipped = r.Skipped
	task.Items = slices.Clone(r.Items)
	if r.Err != nil {
		task.LastError = r.Err.Error()
	}
	if final {
		task.FinishedAt = time.Now()
	}
	snapshot := *task
	callback := s.onUpdate
	s.tasksMutex.Unlock()

	if callback != nil {
		callback(snapshot)
	}
}

// CancelSession cancels every running batch of the session
func (s *Service) CancelSession(sessionID string) int {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	n := 0
	for id, cancel := range s.cancels {
		if s.tasks[id].SessionID == sessionID {
			cancel()
			n++
		}
	}
	if n > 0 {
		s.logger.Info("session batches cancelled", "session", sessionID, "count", n)
	}
	return n
}

// GetTask returns a snapshot of a task by ID
func (s *Service) GetTask(id string) (*model.BatchTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// SessionTasks returns snapshots of the session's tasks, oldest first
func (s *Service) SessionTasks(sessionID string) []*model.BatchTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.BatchTask, 0)
	for _, task := range s.tasks {
		if task.SessionID == sessionID {
			snapshot := *task
			tasks = append(tasks, &snapshot)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartedAt.Before(tasks[j].StartedAt)
	})
	return tasks
}

// Wait blocks until every background job finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// track registers a background job unless the service is shutting down
func (s *Service) track() bool {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

// Shutdown cancels all work and waits for it, or for ctx to end
func (s *Service) Shutdown(ctx context.Context) error {
	s.tasksMutex.Lock()
	s.cancel()
	s.tasksMutex.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func unwrapResolution(err error) error {
	var re *ResolutionError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err
	}
	return err
}

// generateBatchID generates a unique batch ID
func generateBatchID() string {
	return batchIDPrefix + uuid.NewString()
}
