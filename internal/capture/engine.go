package capture

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/xwincast/xwincast/internal/logger"
	"github.com/xwincast/xwincast/internal/x11"
)

// Events are the notifications the engine delivers to its host. Callbacks
// are optional and invoked synchronously on the goroutine that detects the
// change (the pull goroutine during reconciliation).
type Events struct {
	// Resize fires when reconciliation observes a width or height change.
	// Pure relocation never fires it.
	Resize func(width, height uint16)

	// WidthChanged and HeightChanged fire individually, only for the
	// dimension that actually changed.
	WidthChanged  func(width uint16)
	HeightChanged func(height uint16)

	// VisibilityChanged fires when the classified visibility changes.
	VisibilityChanged func(v x11.Visibility)

	// Renegotiate, when set, replaces the engine's internal format
	// refresh after a geometry update. A failure fails the current pull.
	Renegotiate func() error
}

// Options configures an Engine.
type Options struct {
	// Logger scopes the engine's log output. Defaults to the global
	// logger with an "engine" component field.
	Logger *zerolog.Logger

	Events Events
}

// Engine captures a single X11 window. All shared state lives behind one
// mutex; critical sections never span a protocol round trip so the pull
// path and the watcher never serialize on X I/O.
type Engine struct {
	connect Connector
	log     zerolog.Logger
	events  Events

	mu         sync.Mutex
	session    Session
	screen     int
	window     x11.Window
	showCursor bool
	dirty      bool
	geom       x11.Geometry
	visibility x11.Visibility
	format     x11.PixelFormat
	interval   time.Duration
	lastAt     time.Time
	last       *Frame

	watch *watcher
}

// New creates an engine that opens X connections through connect. The
// target window must be set before Start.
func New(connect Connector, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.WithComponent("engine")
	}
	return &Engine{
		connect:  connect,
		log:      *log,
		events:   opts.Events,
		dirty:    true,
		interval: defaultFrameRate.Interval(),
	}
}

// Start opens the engine's connection (unless a capability query already
// did) and spawns the event watcher. It fails if no window id is set or
// the display is unreachable; a failed Start is fatal for the instance,
// there is no reconnection loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.watch != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine already started")
	}
	win := e.window
	e.mu.Unlock()

	if win == 0 {
		return ErrWindowUnset
	}
	if _, err := e.ensureSession(); err != nil {
		return err
	}

	e.startWatcher(win)
	e.log.Info().Uint32("window", uint32(win)).Msg("capture engine started")
	return nil
}

// Stop joins the watcher and tears the connection down. It is idempotent;
// no dirty-flag writes can occur after it returns.
func (e *Engine) Stop() error {
	e.stopWatcher()

	e.mu.Lock()
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}
	e.last = nil
	e.lastAt = time.Time{}
	e.dirty = true
	e.mu.Unlock()

	e.log.Info().Msg("capture engine stopped")
	return nil
}

// ensureSession returns the live session, opening one if absent.
func (e *Engine) ensureSession() (Session, error) {
	e.mu.Lock()
	if e.session != nil {
		s := e.session
		e.mu.Unlock()
		return s, nil
	}
	e.mu.Unlock()

	s, err := e.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	e.mu.Lock()
	if e.session != nil {
		existing := e.session
		e.mu.Unlock()
		s.Close()
		return existing, nil
	}
	e.session = s
	e.screen = s.ScreenIndex()
	e.mu.Unlock()
	return s, nil
}

// markDirty flags cached geometry/visibility as stale. Called by the
// watcher; this is its only write into shared state.
func (e *Engine) markDirty() {
	e.mu.Lock()
	e.dirty = true
	e.mu.Unlock()
}

// reconcileIfDirty read-and-clears the dirty flag and, if it was set,
// re-queries geometry and visibility, firing the change notifications.
// It reports whether any query was performed so the caller can decide to
// renegotiate capabilities.
func (e *Engine) reconcileIfDirty() (bool, error) {
	e.mu.Lock()
	sess, win := e.session, e.window
	wasDirty := e.dirty
	e.dirty = false
	e.mu.Unlock()

	if sess == nil {
		return false, ErrNotConnected
	}
	if win == 0 {
		return false, ErrWindowUnset
	}
	if !wasDirty {
		return false, nil
	}

	geom, err := sess.Geometry(win)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	prev := e.geom
	e.geom = geom
	e.mu.Unlock()

	if prev.Width != geom.Width && e.events.WidthChanged != nil {
		e.events.WidthChanged(geom.Width)
	}
	if prev.Height != geom.Height && e.events.HeightChanged != nil {
		e.events.HeightChanged(geom.Height)
	}
	if !prev.SameSize(geom) {
		e.log.Debug().
			Uint16("width", geom.Width).
			Uint16("height", geom.Height).
			Msg("window resized")
		if e.events.Resize != nil {
			e.events.Resize(geom.Width, geom.Height)
		}
	}

	vis, err := sess.Visibility(win)
	if err != nil {
		return true, err
	}

	e.mu.Lock()
	visChanged := vis != e.visibility
	e.visibility = vis
	e.mu.Unlock()

	if visChanged {
		e.log.Debug().Stringer("visibility", vis).Msg("window visibility changed")
		if e.events.VisibilityChanged != nil {
			e.events.VisibilityChanged(vis)
		}
	}

	return true, nil
}

// SetWindow configures the capture target. Takes effect on the next
// reconciliation; the watcher binds to the window present at Start.
func (e *Engine) SetWindow(win x11.Window) {
	e.mu.Lock()
	e.window = win
	e.dirty = true
	e.mu.Unlock()
}

// Window returns the configured target window id (zero when unset).
func (e *Engine) Window() x11.Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

// SetShowCursor toggles the pointer-position check during production.
// Cursor compositing itself is not implemented.
func (e *Engine) SetShowCursor(show bool) {
	e.mu.Lock()
	e.showCursor = show
	e.mu.Unlock()
}

// ShowCursor reports the cursor toggle.
func (e *Engine) ShowCursor() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showCursor
}

// Width returns the last known window width.
func (e *Engine) Width() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geom.Width
}

// Height returns the last known window height.
func (e *Engine) Height() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geom.Height
}

// Geometry returns the last known window geometry.
func (e *Engine) Geometry() x11.Geometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geom
}

// Visibility returns the last classified visibility. VisibilityUnknown
// until the first successful reconciliation.
func (e *Engine) Visibility() x11.Visibility {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibility
}

// Format returns the most recently resolved pixel format.
func (e *Engine) Format() x11.PixelFormat {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// Interval returns the currently negotiated frame interval.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// ParseWindowID parses a window id from its decimal or 0x-prefixed
// hexadecimal string form.
func ParseWindowID(s string) (x11.Window, error) {
	var id uint64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		id, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q: %w", s, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid window id %q: must be non-zero", s)
	}
	return x11.Window(id), nil
}
