package interview

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const shutdownWait = 5 * time.Second

type ManagerConfig struct {
	TotalDurationSeconds int
	CompletionDelay      time.Duration
	TickInterval         time.Duration
	Retention            time.Duration
	Navigator            Navigator
	Notifier             Notifier
}

type StartParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Difficulty Difficulty
	Gender     Gender
	Device     MediaDevice
}

type entry struct {
	ctrl       *Controller
	finishedAt time.Time
}

// Manager keeps every live controller. Each user owns at most one session, so
// at most one controller holds that user's media device.
type Manager struct {
	mu       sync.Mutex
	cfg      ManagerConfig
	sessions map[uuid.UUID]*entry
	byUser   map[uuid.UUID]uuid.UUID
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = 10 * time.Minute
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*entry),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		stopChan: make(chan struct{}),
	}
}

// Start mounts a new controller. A user's previous session, if any, is
// unmounted first.
func (m *Manager) Start(ctx context.Context, p StartParams) (*Controller, error) {
	ctrl := NewController(Options{
		ID:                   p.ID,
		UserID:               p.UserID,
		Difficulty:           p.Difficulty,
		Gender:               p.Gender,
		TotalDurationSeconds: m.cfg.TotalDurationSeconds,
		CompletionDelay:      m.cfg.CompletionDelay,
		TickInterval:         m.cfg.TickInterval,
		Device:               p.Device,
		Navigator:            m.cfg.Navigator,
		Notifier:             m.cfg.Notifier,
	})

	m.mu.Lock()
	var previous *Controller
	if prevID, ok := m.byUser[p.UserID]; ok {
		if e, ok := m.sessions[prevID]; ok {
			previous = e.ctrl
		}
	}
	m.sessions[ctrl.ID()] = &entry{ctrl: ctrl}
	m.byUser[p.UserID] = ctrl.ID()
	m.mu.Unlock()

	if previous != nil {
		log.Printf("interview: user %s started a new session, unmounting %s", p.UserID, previous.ID())
		previous.Close()
	}

	if err := ctrl.Start(ctx); err != nil {
		m.remove(ctrl.ID())
		return nil, err
	}

	go m.watch(ctrl)
	return ctrl, nil
}

func (m *Manager) watch(ctrl *Controller) {
	select {
	case <-ctrl.Done():
	case <-m.stopChan:
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[ctrl.ID()]; ok {
		e.finishedAt = time.Now()
	}
	if m.byUser[ctrl.UserID()] == ctrl.ID() {
		delete(m.byUser, ctrl.UserID())
	}
}

func (m *Manager) Get(id uuid.UUID) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.ctrl, nil
}

// Active returns the user's current unfinished session.
func (m *Manager) Active(userID uuid.UUID) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byUser[userID]
	if !ok {
		return nil, false
	}
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// Unmount closes the session and forgets it.
func (m *Manager) Unmount(id uuid.UUID) error {
	ctrl, err := m.Get(id)
	if err != nil {
		return err
	}
	ctrl.Close()
	m.remove(id)
	return nil
}

func (m *Manager) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return
	}
	delete(m.sessions, id)
	if m.byUser[e.ctrl.UserID()] == id {
		delete(m.byUser, e.ctrl.UserID())
	}
}

// Len is the number of tracked sessions, finished ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartReaper drops finished sessions once they are older than the retention
// window. It runs until Shutdown.
func (m *Manager) StartReaper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopChan:
				return
			case now := <-ticker.C:
				m.reap(now)
			}
		}
	}()
}

func (m *Manager) reap(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.cfg.Retention)
	removed := 0
	for id, e := range m.sessions {
		if !e.finishedAt.IsZero() && e.finishedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Shutdown unmounts every session and stops background loops. Hand-offs
// still waiting out the completion delay run immediately, and Shutdown waits
// (up to shutdownWait) for every session to wind down, so nothing reaches the
// navigator once the caller moves on to closing stores.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopChan) })

	m.mu.Lock()
	ctrls := make([]*Controller, 0, len(m.sessions))
	for _, e := range m.sessions {
		ctrls = append(ctrls, e.ctrl)
	}
	m.sessions = make(map[uuid.UUID]*entry)
	m.byUser = make(map[uuid.UUID]uuid.UUID)
	m.mu.Unlock()

	for _, c := range ctrls {
		c.Close()
		c.FlushHandOff()
	}

	deadline := time.After(shutdownWait)
	for _, c := range ctrls {
		select {
		case <-c.Done():
		case <-deadline:
			log.Printf("interview: shutdown gave up waiting on session %s", c.ID())
			return
		}
	}
}
