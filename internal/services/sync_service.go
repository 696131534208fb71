package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/markdave123-py/integraldb/internal/core"
	"github.com/markdave123-py/integraldb/internal/core/ingestion_engine"
	"github.com/markdave123-py/integraldb/internal/models"
)

// SyncStatus is a snapshot of the sync service.
type SyncStatus struct {
	Running   bool              `json:"running"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	LastRun   *models.RunReport `json:"last_run,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	Passes    int               `json:"passes"`
}

// SyncService makes sure at most one sync pass runs at a time, whoever triggers it.
type SyncService struct {
	ingestor ingestion_engine.Ingestor
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	last      *models.RunReport
	lastErr   error
	passes    int
	wg        sync.WaitGroup
}

func NewSyncService(ing ingestion_engine.Ingestor, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{ingestor: ing, logger: logger}
}

// RunOnce runs a pass and waits for it. It fails with ErrSyncInProgress if one is already running.
func (s *SyncService) RunOnce(ctx context.Context) (*models.RunReport, error) {
	if !s.acquire() {
		return nil, core.ErrSyncInProgress
	}
	return s.run(ctx)
}

// TriggerAsync starts a pass in the background.
// ctx must outlive the caller's request; cancelling it stops the pass between sources.
func (s *SyncService) TriggerAsync(ctx context.Context) error {
	if !s.acquire() {
		return core.ErrSyncInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.run(ctx)
	}()
	return nil
}

// RunScheduled runs a pass immediately and then every interval until ctx is done.
// A tick that finds a pass still running is skipped.
func (s *SyncService) RunScheduled(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	s.logger.Info("scheduler started", "interval", interval)

	tick := func() {
		if _, err := s.RunOnce(ctx); errors.Is(err, core.ErrSyncInProgress) {
			s.logger.Info("sync pass still running, skipping tick")
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}

// Wait blocks until background passes started by TriggerAsync have returned.
func (s *SyncService) Wait() { s.wg.Wait() }

func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SyncStatus{Running: s.running, LastRun: s.last, Passes: s.passes}
	if s.running {
		t := s.startedAt
		st.StartedAt = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *SyncService) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.startedAt = time.Now().UTC()
	return true
}

func (s *SyncService) run(ctx context.Context) (*models.RunReport, error) {
	rep, err := s.ingestor.Run(ctx)

	s.mu.Lock()
	s.running = false
	s.passes++
	s.lastErr = err
	if rep != nil {
		s.last = rep
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("sync pass aborted", "err", err)
	}
	return rep, err
}
