package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/xwincast/xwincast/internal/x11"
)

var errTest = errors.New("test error")

func (e *Engine) isDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func waitDirty(t *testing.T, e *Engine, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if e.isDirty() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// startedEngine starts an engine over the fake and settles the initial
// dirty flag and the watcher's size baseline.
func startedEngine(t *testing.T, fake *fakeSession) *Engine {
	t.Helper()
	e := New(connector(fake), Options{})
	e.SetWindow(0x42)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { e.Stop() })

	e.mu.Lock()
	e.interval = 0
	e.mu.Unlock()
	if _, err := e.Produce(); err != nil {
		t.Fatalf("initial produce: %v", err)
	}

	// The watcher's last-seen size starts out unknown; feed it the current
	// size once so later events are compared against a real baseline.
	fake.mu.Lock()
	g := fake.geom
	fake.mu.Unlock()
	fake.pushEvent(x11.ConfigureEvent{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height})
	if !waitDirty(t, e, time.Second) {
		t.Fatal("baseline configure event never marked dirty")
	}
	if _, err := e.Produce(); err != nil {
		t.Fatalf("baseline produce: %v", err)
	}
	if e.isDirty() {
		t.Fatal("dirty flag not cleared by produce")
	}
	return e
}

func TestWatcherIgnoresRelocationOnlyEvents(t *testing.T) {
	fake := &fakeSession{geom: x11.Geometry{Width: 640, Height: 480}}
	e := startedEngine(t, fake)

	fake.pushEvent(x11.ConfigureEvent{X: 500, Y: 300, Width: 640, Height: 480})
	time.Sleep(200 * time.Millisecond)
	if e.isDirty() {
		t.Fatal("relocation-only event must not mark geometry dirty")
	}
}

func TestWatcherMarksDirtyOnSizeChange(t *testing.T) {
	fake := &fakeSession{geom: x11.Geometry{Width: 640, Height: 480}}
	e := startedEngine(t, fake)

	fake.pushEvent(x11.ConfigureEvent{Width: 800, Height: 480})
	if !waitDirty(t, e, time.Second) {
		t.Fatal("size change never marked dirty")
	}
}

func TestWatcherMarksDirtyOnPropertyChange(t *testing.T) {
	fake := &fakeSession{geom: x11.Geometry{Width: 640, Height: 480}}
	e := startedEngine(t, fake)

	fake.pushEvent(x11.PropertyEvent{})
	if !waitDirty(t, e, time.Second) {
		t.Fatal("property change never marked dirty")
	}
}

func TestStopJoinsWatcherBeforeReturning(t *testing.T) {
	fake := &fakeSession{geom: x11.Geometry{Width: 640, Height: 480}}
	e := startedEngine(t, fake)

	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// No dirty-flag writes may happen once Stop has returned.
	e.mu.Lock()
	e.dirty = false
	e.mu.Unlock()
	fake.pushEvent(x11.ConfigureEvent{Width: 1024, Height: 768})
	time.Sleep(200 * time.Millisecond)
	if e.isDirty() {
		t.Fatal("watcher wrote the dirty flag after Stop returned")
	}
}

func TestWatcherDegradesWhenRegistrationFails(t *testing.T) {
	fake := &fakeSession{
		geom:     x11.Geometry{Width: 640, Height: 480},
		watchErr: errTest,
	}
	e := New(connector(fake), Options{})
	e.SetWindow(0x42)
	if err := e.Start(); err != nil {
		t.Fatalf("start must survive a watcher registration failure: %v", err)
	}

	e.mu.Lock()
	e.interval = 0
	e.mu.Unlock()
	if _, err := e.Produce(); err != nil {
		t.Fatalf("capture path must keep working: %v", err)
	}

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not join the degraded watcher")
	}
}

func TestEndToEndResizeRenegotiation(t *testing.T) {
	fake := &fakeSession{geom: x11.Geometry{Width: 640, Height: 480}}
	notes := &notifications{}
	e := New(connector(fake), Options{Events: notes.events()})

	// Before any window is configured, capability queries degrade to the
	// unconstrained template instead of failing.
	if caps := e.QueryCaps(nil); len(caps) != 1 || caps[0] != (Structure{}) {
		t.Fatalf("expected template caps before configuration, got %+v", caps)
	}

	e.SetWindow(0x42)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	caps := e.Fixate(e.QueryCaps(nil))
	if err := e.AcceptCaps(caps); err != nil {
		t.Fatalf("accept caps: %v", err)
	}
	if e.Interval() != 40*time.Millisecond {
		t.Fatalf("fixated default rate gives %v, want 40ms", e.Interval())
	}

	first, err := e.Produce()
	if err != nil {
		t.Fatalf("first produce: %v", err)
	}
	if len(first.Data) != 640*480*4 {
		t.Fatalf("first frame size %d, want %d", len(first.Data), 640*480*4)
	}

	// The window grows; the watcher notices and the next pull reconciles.
	fake.setGeometry(x11.Geometry{Width: 800, Height: 600})
	fake.pushEvent(x11.ConfigureEvent{Width: 800, Height: 600})
	if !waitDirty(t, e, time.Second) {
		t.Fatal("resize event never marked dirty")
	}

	time.Sleep(e.Interval())
	second, err := e.Produce()
	if err != nil {
		t.Fatalf("produce after resize: %v", err)
	}
	if len(second.Data) != 800*600*4 {
		t.Fatalf("frame after resize has %d bytes, want %d", len(second.Data), 800*600*4)
	}

	notes.mu.Lock()
	defer notes.mu.Unlock()
	found := false
	for _, r := range notes.resizes {
		if r == [2]uint16{800, 600} {
			found = true
		}
	}
	if !found {
		t.Fatalf("no resize notification for 800x600, got %v", notes.resizes)
	}
}
