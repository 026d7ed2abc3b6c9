package ingestion

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/emergent-company/emergent/pkg/logger"
)

// shutdownEvent is a monotonic, set-once flag: once Set is called it stays
// set for the life of the registration.
type shutdownEvent struct {
	mu     sync.Mutex
	once   sync.Once
	ch     chan struct{}
	isSet  bool
}

func newShutdownEvent() *shutdownEvent {
	return &shutdownEvent{ch: make(chan struct{})}
}

func (e *shutdownEvent) Set() {
	e.once.Do(func() {
		e.mu.Lock()
		e.isSet = true
		e.mu.Unlock()
		close(e.ch)
	})
}

func (e *shutdownEvent) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSet
}

// Done returns a channel that closes when the event is set, for use in select.
func (e *shutdownEvent) Done() <-chan struct{} {
	return e.ch
}

// ShutdownManager holds a job_id -> shutdown_event mapping (spec §4.4). The
// service also installs process-level signal handlers that request a global
// shutdown and mark all running jobs paused.
type ShutdownManager struct {
	mu     sync.Mutex
	events map[string]*shutdownEvent
	log    *slog.Logger
}

// NewShutdownManager builds an empty registry.
func NewShutdownManager(log *slog.Logger) *ShutdownManager {
	return &ShutdownManager{
		events: make(map[string]*shutdownEvent),
		log:    log.With(logger.Scope("ingestion.shutdown")),
	}
}

// RegisterJob creates (or returns the existing) shutdown event for jobID.
func (m *ShutdownManager) RegisterJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[jobID]; !ok {
		m.events[jobID] = newShutdownEvent()
	}
}

// RequestShutdown sets the event for jobID, or for every registered job when
// jobID is empty.
func (m *ShutdownManager) RequestShutdown(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if jobID == "" {
		for id, ev := range m.events {
			ev.Set()
			m.log.Info("shutdown requested", slog.String("jobId", id))
		}
		return
	}
	if ev, ok := m.events[jobID]; ok {
		ev.Set()
	}
}

// UnregisterJob removes jobID's entry. Safe to call even if never registered.
func (m *ShutdownManager) UnregisterJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, jobID)
}

// IsShutdownRequested is true iff the event for jobID is set. An unregistered
// job is never considered shutdown-requested.
func (m *ShutdownManager) IsShutdownRequested(jobID string) bool {
	m.mu.Lock()
	ev, ok := m.events[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return ev.IsSet()
}

// RegisteredJobIDs returns a snapshot of currently-registered job ids, used by
// process-level signal handling to know which jobs to mark paused.
func (m *ShutdownManager) RegisteredJobIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	return ids
}

// InstallSignalHandler installs process-level handlers for SIGINT/SIGTERM.
// Each invocation calls onSignal once the signal is received; callers use
// this to request a global shutdown and mark running jobs paused (spec §4.4,
// §5's "Process-level shutdown" behavior).
func (m *ShutdownManager) InstallSignalHandler(onSignal func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		m.log.Info("interrupt received, requesting global shutdown")
		m.RequestShutdown("")
		onSignal()
	}()
}
