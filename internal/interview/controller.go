package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultDurationSeconds = 60
	DefaultCompletionDelay = 3 * time.Second
	DefaultTickInterval    = time.Second
)

const deviceWarning = "Camera or microphone unavailable. The interview continues without a live preview."

var (
	ErrAlreadyStarted   = errors.New("session already started")
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionClosed    = errors.New("session closed before it became active")
)

type State int

const (
	StateInitializing State = iota
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "initializing":
		*s = StateInitializing
	case "active":
		*s = StateActive
	case "completed":
		*s = StateCompleted
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

type EndReason string

const (
	EndExpired   EndReason = "expired"
	EndManual    EndReason = "ended"
	EndAbandoned EndReason = "abandoned"
)

type Options struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Difficulty           Difficulty
	Gender               Gender
	TotalDurationSeconds int
	CompletionDelay      time.Duration
	TickInterval         time.Duration
	Device               MediaDevice
	Navigator            Navigator
	Notifier             Notifier
}

type Snapshot struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	State                State      `json:"state"`
	Active               bool       `json:"is_active"`
	Difficulty           Difficulty `json:"difficulty"`
	Gender               Gender     `json:"interviewer_gender"`
	TotalDurationSeconds int        `json:"total_duration_seconds"`
	RemainingSeconds     int        `json:"remaining_seconds"`
	ElapsedSeconds       int        `json:"elapsed_seconds"`
	ActiveQuestion       *Question  `json:"active_question"`
	MicEnabled           bool       `json:"mic_enabled"`
	CameraEnabled        bool       `json:"camera_enabled"`
	LivePreview          bool       `json:"live_preview"`
	Warning              string     `json:"warning,omitempty"`
	EndReason            EndReason  `json:"end_reason,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
}

// Result is what the navigator receives when a session finishes.
type Result struct {
	SessionID            uuid.UUID
	UserID               uuid.UUID
	Difficulty           Difficulty
	Gender               Gender
	Reason               EndReason
	TotalDurationSeconds int
	ElapsedSeconds       int
	Revealed             []Question
	StartedAt            time.Time
	EndedAt              time.Time
}

// Controller drives one timed interview: Initializing -> Active -> Completed.
// Ticks and user actions are serialized on mu.
type Controller struct {
	mu sync.Mutex

	opts      Options
	questions []Question

	state         State
	starting      bool
	remaining     int
	micEnabled    bool
	cameraEnabled bool
	handle        DeviceHandle
	warning       string
	reason        EndReason
	startedAt     time.Time
	endedAt       time.Time

	stopTicker    context.CancelFunc
	handOffTimer  *time.Timer
	pendingResult Result

	// serializes device track commands, which run outside mu
	trackMu sync.Mutex
	events  *eventQueue

	releaseOnce sync.Once
	doneOnce    sync.Once
	done        chan struct{}
}

func NewController(opts Options) *Controller {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	opts.Difficulty = ParseDifficulty(string(opts.Difficulty))
	opts.Gender = ParseGender(string(opts.Gender))
	if opts.TotalDurationSeconds <= 0 {
		opts.TotalDurationSeconds = DefaultDurationSeconds
	}
	if opts.CompletionDelay <= 0 {
		opts.CompletionDelay = DefaultCompletionDelay
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Device == nil {
		opts.Device = noDevice{}
	}
	if opts.Navigator == nil {
		opts.Navigator = nopNavigator{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}

	c := &Controller{
		opts:      opts,
		questions: Questions(opts.Difficulty),
		state:     StateInitializing,
		remaining: opts.TotalDurationSeconds,
		events:    newEventQueue(),
		done:      make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *Controller) ID() uuid.UUID     { return c.opts.ID }
func (c *Controller) UserID() uuid.UUID { return c.opts.UserID }

// Done is closed once the session has fully wound down and its last event
// has reached the notifier: after the hand-off for expired and ended
// sessions, right after unmount for abandoned ones.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start acquires the media device and begins the countdown. A device failure
// is not an error; the session runs without a live preview.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInitializing || c.starting {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.starting = true
	c.mu.Unlock()

	handle, err := c.opts.Device.Acquire(ctx, true, true)

	c.mu.Lock()
	if c.state != StateInitializing {
		// unmounted while the device request was in flight
		c.mu.Unlock()
		if handle != nil {
			c.opts.Device.Release(handle)
		}
		return ErrSessionClosed
	}

	if err != nil {
		log.Printf("interview %s: media device unavailable: %v", c.opts.ID, err)
		c.warning = deviceWarning
	} else {
		c.handle = handle
		c.micEnabled = true
		c.cameraEnabled = true
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	c.stopTicker = cancel
	c.state = StateActive
	c.remaining = c.opts.TotalDurationSeconds
	c.startedAt = time.Now().UTC()
	snap := c.snapshotLocked()
	c.events.push(Event{Type: EventStarted, Snapshot: snap})
	if err != nil {
		c.events.push(Event{Type: EventWarning, Snapshot: snap, Message: deviceWarning})
	}
	c.mu.Unlock()

	go c.run(tickCtx)
	return nil
}

func (c *Controller) run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick advances the countdown by one second. It does nothing unless the
// session is active.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}

	c.remaining--
	if c.remaining > 0 {
		c.events.push(Event{Type: EventTick, Snapshot: c.snapshotLocked()})
		c.mu.Unlock()
		return
	}

	result := c.finishLocked(EndExpired)
	snap := c.snapshotLocked()
	c.events.push(Event{Type: EventTick, Snapshot: snap})
	c.events.push(Event{Type: EventCompleting, Snapshot: snap, Message: "Interview completed! Preparing your results..."})
	c.pendingResult = result
	c.handOffTimer = time.AfterFunc(c.opts.CompletionDelay, func() {
		c.handOff(result)
	})
	c.mu.Unlock()

	c.releaseDevice()
}

// FlushHandOff runs a hand-off scheduled by natural expiry now instead of
// after the completion delay. It does nothing when none is pending.
func (c *Controller) FlushHandOff() {
	c.mu.Lock()
	timer := c.handOffTimer
	result := c.pendingResult
	c.mu.Unlock()

	if timer != nil && timer.Stop() {
		c.handOff(result)
	}
}

// End terminates the session on request and hands off immediately.
func (c *Controller) End() error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrSessionNotActive
	}
	result := c.finishLocked(EndManual)
	c.mu.Unlock()

	c.releaseDevice()
	c.handOff(result)
	return nil
}

// Close is the unmount path. An active session is abandoned without a
// hand-off. A hand-off already scheduled by natural expiry still runs.
func (c *Controller) Close() {
	c.mu.Lock()
	var snap Snapshot
	abandoned := false
	switch c.state {
	case StateInitializing:
		c.state = StateCompleted
		c.reason = EndAbandoned
		c.endedAt = time.Now().UTC()
		abandoned = true
	case StateActive:
		c.finishLocked(EndAbandoned)
		abandoned = true
	}
	if abandoned {
		snap = c.snapshotLocked()
		c.events.push(Event{Type: EventAbandoned, Snapshot: snap})
	}
	c.mu.Unlock()

	c.releaseDevice()
	if abandoned {
		c.markDone()
	}
}

func (c *Controller) ToggleMic() bool    { return c.toggle(TrackAudio) }
func (c *Controller) ToggleCamera() bool { return c.toggle(TrackVideo) }

func (c *Controller) toggle(kind TrackKind) bool {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()

	c.mu.Lock()
	var enabled bool
	if kind == TrackAudio {
		c.micEnabled = !c.micEnabled
		enabled = c.micEnabled
	} else {
		c.cameraEnabled = !c.cameraEnabled
		enabled = c.cameraEnabled
	}
	h := c.handle
	c.events.push(Event{Type: EventMedia, Snapshot: c.snapshotLocked()})
	c.mu.Unlock()

	// A handle released meanwhile makes this a no-op on the device side.
	if h != nil {
		if err := c.opts.Device.SetTrackEnabled(h, kind, enabled); err != nil {
			log.Printf("interview %s: set %s track: %v", c.opts.ID, kind, err)
		}
	}
	return enabled
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) finishLocked(reason EndReason) Result {
	c.state = StateCompleted
	c.reason = reason
	c.endedAt = time.Now().UTC()
	if c.stopTicker != nil {
		c.stopTicker()
	}

	elapsed := c.opts.TotalDurationSeconds - c.remaining
	revealed := c.questions[:RevealedCount(c.questions, elapsed)]

	return Result{
		SessionID:            c.opts.ID,
		UserID:               c.opts.UserID,
		Difficulty:           c.opts.Difficulty,
		Gender:               c.opts.Gender,
		Reason:               reason,
		TotalDurationSeconds: c.opts.TotalDurationSeconds,
		ElapsedSeconds:       elapsed,
		Revealed:             append([]Question(nil), revealed...),
		StartedAt:            c.startedAt,
		EndedAt:              c.endedAt,
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	elapsed := c.opts.TotalDurationSeconds - c.remaining
	snap := Snapshot{
		ID:                   c.opts.ID,
		UserID:               c.opts.UserID,
		State:                c.state,
		Active:               c.state == StateActive,
		Difficulty:           c.opts.Difficulty,
		Gender:               c.opts.Gender,
		TotalDurationSeconds: c.opts.TotalDurationSeconds,
		RemainingSeconds:     c.remaining,
		ElapsedSeconds:       elapsed,
		MicEnabled:           c.micEnabled,
		CameraEnabled:        c.cameraEnabled,
		LivePreview:          c.handle != nil,
		Warning:              c.warning,
		EndReason:            c.reason,
	}
	if q, ok := ActiveQuestion(c.questions, elapsed); ok {
		snap.ActiveQuestion = &q
	}
	if !c.startedAt.IsZero() {
		t := c.startedAt
		snap.StartedAt = &t
	}
	if !c.endedAt.IsZero() {
		t := c.endedAt
		snap.EndedAt = &t
	}
	return snap
}

// releaseDevice is the single cleanup path shared by every exit.
func (c *Controller) releaseDevice() {
	c.releaseOnce.Do(func() {
		c.mu.Lock()
		h := c.handle
		c.handle = nil
		c.mu.Unlock()

		if h != nil {
			c.opts.Device.Release(h)
		}
	})
}

func (c *Controller) handOff(result Result) {
	c.opts.Navigator.CompleteSession(context.Background(), result)
	c.markDone()
}

func (c *Controller) markDone() {
	c.doneOnce.Do(c.events.close)
}

func (c *Controller) pump() {
	c.events.drain(c.opts.Notifier)
	close(c.done)
}

type noDevice struct{}

func (noDevice) Acquire(context.Context, bool, bool) (DeviceHandle, error) {
	return nil, ErrDeviceUnavailable
}
func (noDevice) SetTrackEnabled(DeviceHandle, TrackKind, bool) error { return ErrDeviceUnavailable }
func (noDevice) Release(DeviceHandle)                                {}

type nopNavigator struct{}

func (nopNavigator) CompleteSession(context.Context, Result) {}
