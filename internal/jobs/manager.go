package jobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/websocket"
)

// AppContext provides the dependencies a job needs to run. The core.App
// struct implements this interface.
type AppContext interface {
	Config() *config.Config
	WsHub() *websocket.Hub
	JobManager() *Manager
}

type jobTask func(ctx AppContext)

type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// Manager runs named background actions. Concurrency is guarded per action
// ID, not by a global lock: a running push blocks another push but not an
// unrelated poll.
type Manager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running map[string]bool
	appCtx  AppContext
}

func NewManager(appCtx AppContext) *Manager {
	return &Manager{
		jobs:    make(map[string]jobTask),
		status:  make(map[string]*JobStatus),
		running: make(map[string]bool),
		appCtx:  appCtx,
	}
}

func (m *Manager) Register(id, name string, task jobTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = task
	m.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
}

// InFlight reports whether the named action is currently running.
func (m *Manager) InFlight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[id]
}

// RunJob starts the named action on its own goroutine. It fails if that same
// action is already in flight.
func (m *Manager) RunJob(id string, ctx AppContext) error {
	m.mu.Lock()
	if m.running[id] {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", id)
	}

	task, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' not found", id)
	}

	m.running[id] = true
	status := m.status[id]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	m.mu.Unlock()

	log.Printf("Starting job: %s", id)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", id, r)
				m.mu.Lock()
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
				m.mu.Unlock()
			}

			m.mu.Lock()
			status.EndTime = time.Now()
			if status.Status == "running" { // If not already set to "failed"
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			m.running[id] = false
			m.mu.Unlock()
			log.Printf("Finished job: %s", id)
		}()

		task(ctx)
	}()
	return nil
}

// Fail marks the named action's status as failed with a message. Tasks call
// this before returning so the final status is not overwritten with success.
func (m *Manager) Fail(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.status[id]; ok {
		s.Status = "failed"
		s.Message = message
	}
}

func (m *Manager) GetStatus() []*JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var statuses []*JobStatus
	for _, s := range m.status {
		copied := *s
		statuses = append(statuses, &copied)
	}
	return statuses
}
