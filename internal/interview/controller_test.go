package interview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeHandle string

func (h fakeHandle) DeviceID() string { return string(h) }

type fakeDevice struct {
	mu          sync.Mutex
	acquireErr  error
	acquired    int
	released    int
	trackCalls  []string
	trackStates map[TrackKind]bool
}

func (d *fakeDevice) Acquire(ctx context.Context, video, audio bool) (DeviceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	d.acquired++
	return fakeHandle("cam-1"), nil
}

func (d *fakeDevice) SetTrackEnabled(h DeviceHandle, kind TrackKind, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trackStates == nil {
		d.trackStates = make(map[TrackKind]bool)
	}
	d.trackCalls = append(d.trackCalls, string(kind))
	d.trackStates[kind] = enabled
	return nil
}

func (d *fakeDevice) Release(h DeviceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released++
}

func (d *fakeDevice) releaseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

type fakeNavigator struct {
	mu      sync.Mutex
	results []Result
	calls   chan Result
}

func newFakeNavigator() *fakeNavigator {
	return &fakeNavigator{calls: make(chan Result, 4)}
}

func (n *fakeNavigator) CompleteSession(ctx context.Context, r Result) {
	n.mu.Lock()
	n.results = append(n.results, r)
	n.mu.Unlock()
	n.calls <- r
}

func (n *fakeNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newTestController(t *testing.T, dev MediaDevice, nav Navigator, notifier Notifier) *Controller {
	t.Helper()
	c := NewController(Options{
		UserID:          uuid.New(),
		Difficulty:      DifficultyMedium,
		CompletionDelay: time.Millisecond,
		// ticks are driven by hand
		TickInterval: time.Hour,
		Device:       dev,
		Navigator:    nav,
		Notifier:     notifier,
	})
	t.Cleanup(c.Close)
	return c
}

func waitHandOff(t *testing.T, nav *fakeNavigator) Result {
	t.Helper()
	select {
	case r := <-nav.calls:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hand-off")
	}
	return Result{}
}

func waitEvent(t *testing.T, n *recordingNotifier, want EventType) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for _, tp := range n.types() {
			if tp == want {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s event", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// gatedDevice blocks Acquire or SetTrackEnabled until gate is closed.
type gatedDevice struct {
	fakeDevice
	gateAcquire bool
	gateTrack   bool
	entered     chan struct{}
	gate        chan struct{}
}

func newGatedDevice() *gatedDevice {
	return &gatedDevice{entered: make(chan struct{}, 1), gate: make(chan struct{})}
}

func (d *gatedDevice) Acquire(ctx context.Context, video, audio bool) (DeviceHandle, error) {
	if d.gateAcquire {
		d.entered <- struct{}{}
		<-d.gate
	}
	return d.fakeDevice.Acquire(ctx, video, audio)
}

func (d *gatedDevice) SetTrackEnabled(h DeviceHandle, kind TrackKind, enabled bool) error {
	if d.gateTrack {
		d.entered <- struct{}{}
		<-d.gate
	}
	return d.fakeDevice.SetTrackEnabled(h, kind, enabled)
}

type slowNotifier struct{ delay time.Duration }

func (n slowNotifier) Notify(Event) { time.Sleep(n.delay) }

func TestController_StartActivates(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, newFakeNavigator(), nil)

	if s := c.Snapshot(); s.State != StateInitializing || s.Active {
		t.Fatalf("expected initializing before start, got %v", s.State)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s := c.Snapshot()
	if s.State != StateActive || !s.Active {
		t.Fatalf("expected active, got %v", s.State)
	}
	if s.RemainingSeconds != DefaultDurationSeconds {
		t.Errorf("expected %d remaining, got %d", DefaultDurationSeconds, s.RemainingSeconds)
	}
	if !s.LivePreview || !s.MicEnabled || !s.CameraEnabled {
		t.Errorf("expected live preview with tracks enabled, got %+v", s)
	}
	if s.ActiveQuestion != nil {
		t.Errorf("expected no question at elapsed 0")
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted on second start, got %v", err)
	}
}

func TestController_DeviceFailureIsRecoverable(t *testing.T) {
	dev := &fakeDevice{acquireErr: ErrDeviceUnavailable}
	notifier := &recordingNotifier{}
	c := newTestController(t, dev, newFakeNavigator(), notifier)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed without a device, got %v", err)
	}

	s := c.Snapshot()
	if !s.Active {
		t.Fatal("expected session to be active")
	}
	if s.LivePreview {
		t.Error("expected no live preview")
	}
	if s.Warning == "" {
		t.Error("expected a user-facing warning")
	}

	// toggles flip state but never reach the device
	if on := c.ToggleMic(); !on {
		t.Error("expected mic toggle to flip to on")
	}
	if len(dev.trackCalls) != 0 {
		t.Errorf("expected no device calls, got %v", dev.trackCalls)
	}

	waitEvent(t, notifier, EventWarning)
}

func TestController_TickDecrementsAndSelectsQuestion(t *testing.T) {
	c := newTestController(t, &fakeDevice{}, newFakeNavigator(), nil)
	c.Start(context.Background())

	prev := c.Snapshot().RemainingSeconds
	for i := 1; i <= 25; i++ {
		c.Tick()
		s := c.Snapshot()
		if s.RemainingSeconds != prev-1 {
			t.Fatalf("tick %d: expected %d remaining, got %d", i, prev-1, s.RemainingSeconds)
		}
		prev = s.RemainingSeconds

		want, ok := ActiveQuestion(Questions(DifficultyMedium), s.ElapsedSeconds)
		if ok != (s.ActiveQuestion != nil) {
			t.Fatalf("tick %d: active question presence mismatch", i)
		}
		if ok && *s.ActiveQuestion != want {
			t.Fatalf("tick %d: expected question %d, got %d", i, want.ID, s.ActiveQuestion.ID)
		}
	}

	s := c.Snapshot()
	if s.ElapsedSeconds != 25 || s.ActiveQuestion == nil || s.ActiveQuestion.ID != 2 {
		t.Errorf("expected question 2 at elapsed 25, got %+v", s.ActiveQuestion)
	}
}

func TestController_NaturalExpiry(t *testing.T) {
	dev := &fakeDevice{}
	nav := newFakeNavigator()
	notifier := &recordingNotifier{}
	c := newTestController(t, dev, nav, notifier)
	c.Start(context.Background())

	for i := 0; i < DefaultDurationSeconds; i++ {
		c.Tick()
	}

	s := c.Snapshot()
	if s.Active || s.State != StateCompleted {
		t.Fatalf("expected completed, got %v", s.State)
	}
	if s.RemainingSeconds != 0 {
		t.Errorf("expected 0 remaining, got %d", s.RemainingSeconds)
	}
	if s.EndReason != EndExpired {
		t.Errorf("expected expired, got %q", s.EndReason)
	}
	if dev.releaseCount() != 1 {
		t.Errorf("expected one release, got %d", dev.releaseCount())
	}

	r := waitHandOff(t, nav)
	if r.Reason != EndExpired || r.ElapsedSeconds != DefaultDurationSeconds || len(r.Revealed) != 4 {
		t.Errorf("unexpected result %+v", r)
	}

	<-c.Done()

	// further ticks change nothing
	c.Tick()
	c.Tick()
	after := c.Snapshot()
	if after.RemainingSeconds != 0 || after.ActiveQuestion.ID != s.ActiveQuestion.ID {
		t.Errorf("expected no mutation after completion")
	}
	if nav.count() != 1 {
		t.Errorf("expected exactly one hand-off, got %d", nav.count())
	}

	completing := false
	for _, tp := range notifier.types() {
		if tp == EventCompleting {
			completing = true
		}
	}
	if !completing {
		t.Error("expected the completed notice before hand-off")
	}
}

func TestController_ManualEnd(t *testing.T) {
	dev := &fakeDevice{}
	nav := newFakeNavigator()
	notifier := &recordingNotifier{}
	c := newTestController(t, dev, nav, notifier)
	c.Start(context.Background())

	for i := 0; i < 22; i++ {
		c.Tick()
	}

	if err := c.End(); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	s := c.Snapshot()
	if s.Active || s.EndReason != EndManual {
		t.Fatalf("expected manually ended session, got %+v", s)
	}

	// hand-off is immediate
	if nav.count() != 1 {
		t.Fatalf("expected immediate hand-off, got %d", nav.count())
	}
	r := <-nav.calls
	if r.ElapsedSeconds != 22 || len(r.Revealed) != 2 {
		t.Errorf("expected 22s elapsed with 2 questions, got %d and %d", r.ElapsedSeconds, len(r.Revealed))
	}

	c.Tick()
	if got := c.Snapshot().RemainingSeconds; got != s.RemainingSeconds {
		t.Errorf("expected tick after end to be ignored, remaining changed to %d", got)
	}

	if err := c.End(); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive on second end, got %v", err)
	}
	if nav.count() != 1 {
		t.Errorf("expected still one hand-off, got %d", nav.count())
	}
	if dev.releaseCount() != 1 {
		t.Errorf("expected one release, got %d", dev.releaseCount())
	}

	for _, tp := range notifier.types() {
		if tp == EventCompleting {
			t.Error("manual end must not emit the natural-expiry notice")
		}
	}
}

func TestController_CloseAbandons(t *testing.T) {
	dev := &fakeDevice{}
	nav := newFakeNavigator()
	c := newTestController(t, dev, nav, nil)
	c.Start(context.Background())
	c.Tick()

	c.Close()
	c.Close()

	s := c.Snapshot()
	if s.Active || s.EndReason != EndAbandoned {
		t.Fatalf("expected abandoned, got %+v", s)
	}
	if dev.releaseCount() != 1 {
		t.Errorf("expected one release, got %d", dev.releaseCount())
	}
	if nav.count() != 0 {
		t.Errorf("expected no hand-off on unmount, got %d", nav.count())
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Error("expected done to be closed after unmount")
	}
}

func TestController_ReleaseOnceAcrossExitPaths(t *testing.T) {
	dev := &fakeDevice{}
	nav := newFakeNavigator()
	c := newTestController(t, dev, nav, nil)
	c.Start(context.Background())

	c.End()
	c.Close()
	c.Tick()

	if dev.releaseCount() != 1 {
		t.Errorf("expected exactly one release, got %d", dev.releaseCount())
	}
}

func TestController_CloseBeforeStart(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, newFakeNavigator(), nil)

	c.Close()
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected start after close to fail, got %v", err)
	}
	if dev.acquired != 0 {
		t.Errorf("expected no acquisition, got %d", dev.acquired)
	}
}

func TestController_ToggleDoesNotAffectCountdown(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestController(t, dev, newFakeNavigator(), nil)
	c.Start(context.Background())
	c.Tick()

	before := c.Snapshot()
	if on := c.ToggleMic(); on {
		t.Error("expected mic to turn off")
	}
	if on := c.ToggleCamera(); on {
		t.Error("expected camera to turn off")
	}
	after := c.Snapshot()

	if after.RemainingSeconds != before.RemainingSeconds || !after.Active {
		t.Error("toggling must not touch the countdown")
	}
	if dev.trackStates[TrackAudio] || dev.trackStates[TrackVideo] {
		t.Errorf("expected both tracks disabled, got %v", dev.trackStates)
	}
	if dev.releaseCount() != 0 {
		t.Error("toggling must not release the device")
	}

	c.ToggleMic()
	if !dev.trackStates[TrackAudio] {
		t.Error("expected audio re-enabled")
	}
}

func TestController_UnknownDifficultyFallsBack(t *testing.T) {
	c := NewController(Options{Difficulty: Difficulty("nightmare"), TickInterval: time.Hour})
	defer c.Close()

	if got := c.Snapshot().Difficulty; got != DifficultyMedium {
		t.Errorf("expected medium, got %q", got)
	}
}

func TestController_RealTicker(t *testing.T) {
	nav := newFakeNavigator()
	c := NewController(Options{
		TotalDurationSeconds: 3,
		TickInterval:         5 * time.Millisecond,
		CompletionDelay:      time.Millisecond,
		Device:               &fakeDevice{},
		Navigator:            nav,
	})
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	r := waitHandOff(t, nav)
	if r.Reason != EndExpired || r.ElapsedSeconds != 3 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestController_SlowNotifierDoesNotStretchCountdown(t *testing.T) {
	nav := newFakeNavigator()
	c := NewController(Options{
		TotalDurationSeconds: 10,
		TickInterval:         10 * time.Millisecond,
		CompletionDelay:      time.Millisecond,
		Device:               &fakeDevice{},
		Navigator:            nav,
		Notifier:             slowNotifier{delay: 200 * time.Millisecond},
	})
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// ten 10ms ticks; a blocking notifier would need over two seconds
	deadline := time.Now().Add(time.Second)
	for c.Snapshot().State != StateCompleted {
		if time.Now().After(deadline) {
			t.Fatalf("countdown held up by notifier: %d seconds still remaining", c.Snapshot().RemainingSeconds)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if r := waitHandOff(t, nav); r.Reason != EndExpired {
		t.Errorf("expected expiry, got %q", r.Reason)
	}
}

func TestController_SlowTrackCommandDoesNotBlockTick(t *testing.T) {
	dev := newGatedDevice()
	c := newTestController(t, dev, newFakeNavigator(), nil)
	c.Start(context.Background())
	dev.gateTrack = true

	toggled := make(chan bool, 1)
	go func() { toggled <- c.ToggleMic() }()
	<-dev.entered

	ticked := make(chan struct{})
	go func() {
		c.Tick()
		close(ticked)
	}()
	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("tick blocked behind a pending track command")
	}
	if s := c.Snapshot(); s.MicEnabled || s.ElapsedSeconds != 1 {
		t.Errorf("expected mic off after one tick, got %+v", s)
	}

	close(dev.gate)
	if on := <-toggled; on {
		t.Error("expected mic toggle to report off")
	}
}

func TestController_CloseWhileAcquiring(t *testing.T) {
	dev := newGatedDevice()
	dev.gateAcquire = true
	nav := newFakeNavigator()
	c := newTestController(t, dev, nav, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()
	<-dev.entered

	c.Close()
	close(dev.gate)

	if err := <-errCh; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if dev.releaseCount() != 1 {
		t.Errorf("expected the late handle released once, got %d", dev.releaseCount())
	}
	s := c.Snapshot()
	if s.State != StateCompleted || s.EndReason != EndAbandoned || s.LivePreview {
		t.Errorf("expected abandoned without preview, got %+v", s)
	}

	c.Tick()
	if got := c.Snapshot().RemainingSeconds; got != s.RemainingSeconds {
		t.Errorf("expected no countdown after close, remaining changed to %d", got)
	}
	if nav.count() != 0 {
		t.Errorf("expected no hand-off, got %d", nav.count())
	}
}

func TestController_FlushHandOff(t *testing.T) {
	nav := newFakeNavigator()
	c := NewController(Options{
		TotalDurationSeconds: 2,
		TickInterval:         time.Hour,
		CompletionDelay:      time.Hour,
		Device:               &fakeDevice{},
		Navigator:            nav,
	})
	defer c.Close()
	c.Start(context.Background())

	// nothing pending yet
	c.FlushHandOff()
	if nav.count() != 0 {
		t.Fatalf("expected no hand-off while active, got %d", nav.count())
	}

	c.Tick()
	c.Tick()
	c.FlushHandOff()
	c.FlushHandOff()

	if nav.count() != 1 {
		t.Fatalf("expected exactly one flushed hand-off, got %d", nav.count())
	}
	if r := <-nav.calls; r.Reason != EndExpired || r.ElapsedSeconds != 2 {
		t.Errorf("unexpected result %+v", r)
	}
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Error("expected done after the flushed hand-off")
	}
}
