package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Session owns a single connection to an X server. A Session must only be
// used from the goroutine that opened it; concurrent callers open their own.
type Session struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
	index  int

	atoms map[string]xproto.Atom
}

// Connect opens a connection to the X server named by display
// (empty means $DISPLAY).
func Connect(display string) (*Session, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	return &Session{
		conn:   conn,
		setup:  setup,
		screen: setup.DefaultScreen(conn),
		index:  conn.DefaultScreen,
		atoms:  make(map[string]xproto.Atom),
	}, nil
}

// Close releases the connection.
func (s *Session) Close() {
	s.conn.Close()
}

// ScreenIndex returns the display's default screen number.
func (s *Session) ScreenIndex() int {
	return s.index
}

// Root returns the root window of the session's screen.
func (s *Session) Root() Window {
	return Window(s.screen.Root)
}

// Geometry queries the window's current position and size. One round trip.
func (s *Session) Geometry(win Window) (Geometry, error) {
	reply, err := xproto.GetGeometry(s.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return Geometry{X: reply.X, Y: reply.Y, Width: reply.Width, Height: reply.Height}, nil
}

// Visibility reads the window-manager state property of the window. A state
// list containing _NET_WM_STATE_HIDDEN classifies as hidden; any other
// successfully read value classifies as visible. A failed read is an error,
// never VisibilityUnknown.
func (s *Session) Visibility(win Window) (Visibility, error) {
	stateAtom, err := s.atom("_NET_WM_STATE")
	if err != nil {
		return VisibilityUnknown, err
	}
	hiddenAtom, err := s.atom("_NET_WM_STATE_HIDDEN")
	if err != nil {
		return VisibilityUnknown, err
	}

	reply, err := xproto.GetProperty(
		s.conn, false, xproto.Window(win),
		stateAtom, xproto.AtomAtom,
		0, 32,
	).Reply()
	if err != nil {
		return VisibilityUnknown, fmt.Errorf("failed to read _NET_WM_STATE: %w", err)
	}

	for i := 0; i+4 <= len(reply.Value); i += 4 {
		if xproto.Atom(xgb.Get32(reply.Value[i:])) == hiddenAtom {
			return VisibilityHidden, nil
		}
	}
	return VisibilityVisible, nil
}

// FetchImage grabs the full window contents as raw ZPixmap bytes. The layout
// of the returned buffer is described by the session's resolved pixel format.
func (s *Session) FetchImage(win Window, g Geometry) ([]byte, error) {
	reply, err := xproto.GetImage(
		s.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(win),
		0, 0,
		g.Width, g.Height,
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch window image: %w", err)
	}
	return reply.Data, nil
}

// Pointer queries the pointer position relative to the root window.
func (s *Session) Pointer() (Pointer, error) {
	reply, err := xproto.QueryPointer(s.conn, s.screen.Root).Reply()
	if err != nil {
		return Pointer{}, fmt.Errorf("failed to query pointer: %w", err)
	}
	return Pointer{SameScreen: reply.SameScreen, RootX: reply.RootX, RootY: reply.RootY}, nil
}

// WatchWindow subscribes the session to structural and property change
// notifications for the window. The checked request doubles as a flush.
func (s *Session) WatchWindow(win Window) error {
	err := xproto.ChangeWindowAttributesChecked(
		s.conn, xproto.Window(win),
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to register for window events: %w", err)
	}
	return nil
}

// PollEvent returns the next pending event, or (nil, nil) when the queue is
// empty. Events other than configure and property notifications are dropped.
func (s *Session) PollEvent() (Event, error) {
	ev, xerr := s.conn.PollForEvent()
	if xerr != nil {
		return nil, fmt.Errorf("event poll failed: %s", xerr.Error())
	}
	if ev == nil {
		return nil, nil
	}

	switch ev := ev.(type) {
	case xproto.ConfigureNotifyEvent:
		return ConfigureEvent{X: ev.X, Y: ev.Y, Width: ev.Width, Height: ev.Height}, nil
	case xproto.PropertyNotifyEvent:
		return PropertyEvent{}, nil
	}
	return nil, nil
}

// atom interns an atom by name, caching the result for the session.
func (s *Session) atom(name string) (xproto.Atom, error) {
	if a, ok := s.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	s.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// property reads a whole property value as a string.
func (s *Session) property(win Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(
		s.conn, false, xproto.Window(win),
		atom, xproto.GetPropertyTypeAny,
		0, (1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}
	return string(reply.Value), nil
}
