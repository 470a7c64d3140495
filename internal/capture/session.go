package capture

import (
	"github.com/xwincast/xwincast/internal/x11"
)

// Session is the slice of X server functionality the engine depends on.
// *x11.Session implements it; tests substitute a fake. A Session is owned
// by exactly one goroutine: the engine's pull path and the watcher each
// open their own, so no protocol interleaving occurs on one handle.
type Session interface {
	ScreenIndex() int
	Geometry(win x11.Window) (x11.Geometry, error)
	Visibility(win x11.Window) (x11.Visibility, error)
	ResolveFormat(win x11.Window) (x11.PixelFormat, error)
	FetchImage(win x11.Window, g x11.Geometry) ([]byte, error)
	Pointer() (x11.Pointer, error)
	WatchWindow(win x11.Window) error
	PollEvent() (x11.Event, error)
	Close()
}

// Connector opens a new Session. The engine calls it once for the pull
// path and once more for the watcher.
type Connector func() (Session, error)
