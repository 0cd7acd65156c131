package interview

import (
	"context"
	"errors"
)

var ErrDeviceUnavailable = errors.New("camera or microphone unavailable")

type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// DeviceHandle identifies one acquired capture stream.
type DeviceHandle interface {
	DeviceID() string
}

// MediaDevice is the candidate's camera and microphone. The controller borrows
// it for the lifetime of one session and never shares the handle.
type MediaDevice interface {
	Acquire(ctx context.Context, video, audio bool) (DeviceHandle, error)
	SetTrackEnabled(h DeviceHandle, kind TrackKind, enabled bool) error
	Release(h DeviceHandle)
}

// Navigator receives the terminal hand-off. It is fire-and-forget.
type Navigator interface {
	CompleteSession(ctx context.Context, result Result)
}

// Notifier is told about every observable change of a session.
type Notifier interface {
	Notify(ev Event)
}

type EventType string

const (
	EventStarted    EventType = "session_started"
	EventTick       EventType = "session_tick"
	EventWarning    EventType = "session_warning"
	EventMedia      EventType = "session_media"
	EventCompleting EventType = "session_completing"
	EventAbandoned  EventType = "session_abandoned"
)

type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
	Message  string    `json:"message,omitempty"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
