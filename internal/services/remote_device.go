package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/interview"
	"interview-backend/internal/models"
)

const (
	MsgMediaAcquire = "media_acquire"
	MsgMediaTrack   = "media_track"
	MsgMediaRelease = "media_release"
)

type remoteHandle struct {
	id string
}

func (h remoteHandle) DeviceID() string { return h.id }

// RemoteMediaDevice drives the camera and microphone in the candidate's
// browser. Commands reach the browser over the user's websocket channel.
type RemoteMediaDevice struct {
	pub       Publisher
	userID    uuid.UUID
	available bool
}

// NewRemoteMediaDevice builds a device for one session. available is what the
// client reported about its own capture permissions.
func NewRemoteMediaDevice(pub Publisher, userID uuid.UUID, available bool) *RemoteMediaDevice {
	return &RemoteMediaDevice{pub: pub, userID: userID, available: available}
}

func (d *RemoteMediaDevice) Acquire(ctx context.Context, video, audio bool) (interview.DeviceHandle, error) {
	if !d.available {
		return nil, interview.ErrDeviceUnavailable
	}

	h := remoteHandle{id: uuid.NewString()}
	err := d.send(ctx, MsgMediaAcquire, models.MediaCommand{
		HandleID: h.id,
		Command:  "acquire",
		Enabled:  true,
		Video:    video,
		Audio:    audio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interview.ErrDeviceUnavailable, err)
	}
	return h, nil
}

func (d *RemoteMediaDevice) SetTrackEnabled(h interview.DeviceHandle, kind interview.TrackKind, enabled bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return d.send(ctx, MsgMediaTrack, models.MediaCommand{
		HandleID: h.DeviceID(),
		Command:  "track",
		Kind:     string(kind),
		Enabled:  enabled,
	})
}

func (d *RemoteMediaDevice) Release(h interview.DeviceHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := d.send(ctx, MsgMediaRelease, models.MediaCommand{
		HandleID: h.DeviceID(),
		Command:  "release",
	})
	if err != nil {
		log.Printf("media release for user %s: %v", d.userID, err)
	}
}

func (d *RemoteMediaDevice) send(ctx context.Context, msgType string, cmd models.MediaCommand) error {
	return d.pub.Publish(ctx, d.userID, models.WSMessage{Type: msgType, Payload: cmd})
}
