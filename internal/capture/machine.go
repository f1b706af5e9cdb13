package capture

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sboruta/tracker/pkg/models"
	"github.com/sboruta/tracker/pkg/repository"
)

// State of the capture session machine.
type State int

const (
	// StateIdle means no session is open and nothing is captured.
	StateIdle State = iota
	// StateWorking means a session is open and captures are produced.
	StateWorking
	// StatePaused means a session is open but captures are suspended.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateWorking:
		return "working"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// ErrNotAuthenticated is returned by Start when no employee identity has
// been bound to the machine yet.
var ErrNotAuthenticated = errors.New("no employee identity bound")

const (
	// IdleThreshold is how long input devices must stay quiet before a
	// working session is paused automatically.
	IdleThreshold = 10 * time.Minute

	// maxIntervalEvents caps the event count used for the percentage math,
	// so a single busy interval cannot exceed 100%.
	maxIntervalEvents = 1000
)

// Machine is the capture session state machine. It is the only producer of
// session, screenshot and activity rows; everything it writes goes through
// the local store's UpsertLocal so the rows are marked dirty for sync.
type Machine struct {
	store  repository.LocalStore
	logger *slog.Logger
	now    func() time.Time

	onResumeRequired func()

	mu         sync.Mutex
	state      State
	employeeID string
	sessionID  string
	counters   Counters
}

func NewMachine(store repository.LocalStore, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetNow overrides the clock. Tests use it to pin timestamps.
func (m *Machine) SetNow(now func() time.Time) { m.now = now }

// OnResumeRequired registers the callback raised when an idle-detected
// pause needs the operator to explicitly resume.
func (m *Machine) OnResumeRequired(fn func()) { m.onResumeRequired = fn }

// BindIdentity attaches the signed-in employee to the machine. Sessions
// cannot be started before this is called.
func (m *Machine) BindIdentity(employeeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employeeID = employeeID
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the open session's id, or "" when idle.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Counters exposes the accumulator the OS input hooks feed.
func (m *Machine) Counters() *Counters { return &m.counters }

// Start opens a new session and moves to Working. Starting while already
// Working or Paused is a no-op.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.employeeID == "" {
		return ErrNotAuthenticated
	}
	if m.state != StateIdle {
		return nil
	}

	sess := &models.Session{
		ID:         uuid.NewString(),
		EmployeeID: m.employeeID,
		StartTime:  m.now().UnixMilli(),
	}
	if err := m.store.UpsertLocal(ctx, models.Sessions, sess); err != nil {
		return err
	}

	m.sessionID = sess.ID
	m.state = StateWorking
	m.counters.Snapshot()
	m.logger.Info("session started", "session_id", sess.ID, "employee_id", m.employeeID)
	return nil
}

// Pause suspends capture without closing the session.
func (m *Machine) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateWorking {
		m.state = StatePaused
		m.logger.Info("session paused", "session_id", m.sessionID)
	}
}

// Resume re-enables capture after a pause.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePaused {
		m.state = StateWorking
		m.logger.Info("session resumed", "session_id", m.sessionID)
	}
}

// Stop closes the open session and returns to Idle. The total duration is
// rounded to the nearest whole minute.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle {
		return nil
	}

	row, err := m.store.GetByID(ctx, models.Sessions, m.sessionID)
	if err != nil {
		return err
	}
	if sess, ok := row.(*models.Session); ok && sess.Open() {
		end := m.now().UnixMilli()
		minutes := int64(math.Round(float64(end-sess.StartTime) / 60000.0))
		sess.EndTime = &end
		sess.TotalDurationMinutes = &minutes
		if err := m.store.UpsertLocal(ctx, models.Sessions, sess); err != nil {
			return err
		}
		m.logger.Info("session closed", "session_id", sess.ID, "duration_minutes", minutes)
	}

	m.sessionID = ""
	m.state = StateIdle
	m.counters.Snapshot()
	return nil
}

// Capture persists one screenshot row (when imagePath is non-empty) and
// one activity row from the current counter snapshot, then resets the
// counters. Outside Working it does nothing; a skipped capture is not an
// error.
func (m *Machine) Capture(ctx context.Context, imagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateWorking {
		m.logger.Debug("capture skipped", "state", m.state.String())
		return nil
	}

	at := m.now().UnixMilli()
	clicks, keys := m.counters.Snapshot()

	if imagePath != "" {
		shot := &models.Screenshot{
			ID:         uuid.NewString(),
			SessionID:  m.sessionID,
			EmployeeID: m.employeeID,
			ImagePath:  imagePath,
			CapturedAt: at,
		}
		if err := m.store.UpsertLocal(ctx, models.Screenshots, shot); err != nil {
			return err
		}
	}

	mouse := boundedPercent(clicks)
	keyboard := boundedPercent(keys)
	activity := &models.ActivityLog{
		ID:              uuid.NewString(),
		SessionID:       m.sessionID,
		EmployeeID:      m.employeeID,
		ClickCount:      clicks,
		KeyCount:        keys,
		MousePercent:    mouse,
		KeyboardPercent: keyboard,
		OverallPercent:  (mouse + keyboard) / 2,
		CapturedAt:      at,
	}
	return m.store.UpsertLocal(ctx, models.ActivityLogs, activity)
}

// HandleIdle consumes one idle-duration reading. Crossing the threshold
// while Working pauses the session and raises the resume-required
// interaction.
func (m *Machine) HandleIdle(idleFor time.Duration) {
	m.mu.Lock()
	if m.state != StateWorking || idleFor < IdleThreshold {
		m.mu.Unlock()
		return
	}
	m.state = StatePaused
	m.logger.Info("idle threshold crossed, session paused",
		"session_id", m.sessionID, "idle_seconds", int(idleFor.Seconds()))
	fn := m.onResumeRequired
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func boundedPercent(n int64) float64 {
	p := float64(n) / maxIntervalEvents * 100
	if p > 100 {
		return 100
	}
	return p
}
