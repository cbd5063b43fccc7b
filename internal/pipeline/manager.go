package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mwierzba/factgraph/internal/models"
)

// Manager dispatches pipeline runs to background goroutines so the
// submit endpoint can return immediately. Run state itself lives in the
// database; the manager only tracks which jobs are in flight in this
// process, to reject concurrent runs of the same job.
type Manager struct {
	orchestrator *Orchestrator
	log          *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewManager creates a manager around an orchestrator.
func NewManager(orchestrator *Orchestrator, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		orchestrator: orchestrator,
		log:          log,
		inFlight:     make(map[string]struct{}),
	}
}

// Dispatch starts a job run in the background. It returns an error only
// when the job is already running in this process; run failures are
// persisted on the job record, not returned here.
func (m *Manager) Dispatch(jobUUID string, opts Options) error {
	m.mu.Lock()
	if _, running := m.inFlight[jobUUID]; running {
		m.mu.Unlock()
		return fmt.Errorf("job %s is already running", jobUUID)
	}
	m.inFlight[jobUUID] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.inFlight, jobUUID)
			m.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("job run panicked", "job_uuid", jobUUID, "panic", r)
				msg := fmt.Sprintf("internal panic: %v", r)
				if err := m.orchestrator.store.UpdateJobStatus(context.Background(), jobUUID, models.JobStatusFailed, &msg); err != nil {
					m.log.Error("failed to mark panicked job failed", "job_uuid", jobUUID, "error", err)
				}
			}
		}()

		// Detached from the request context: the run outlives the
		// HTTP request that triggered it.
		if err := m.orchestrator.Run(context.Background(), jobUUID, opts); err != nil {
			m.log.Warn("background run failed", "job_uuid", jobUUID, "error", err)
		}
	}()

	return nil
}

// Running reports whether a job run is in flight in this process.
func (m *Manager) Running(jobUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[jobUUID]
	return ok
}

// Wait blocks until all dispatched runs finish. Used on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
