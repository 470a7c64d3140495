package x11

// Window identifies an X11 window. Zero is never a valid window id and is
// used throughout as "unset".
type Window uint32

// Geometry is a window's position and size in root coordinates.
type Geometry struct {
	X      int16
	Y      int16
	Width  uint16
	Height uint16
}

// SameSize reports whether two geometries have equal dimensions,
// ignoring position.
func (g Geometry) SameSize(o Geometry) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// Visibility classifies whether a window is currently shown.
type Visibility int

const (
	VisibilityUnknown Visibility = iota
	VisibilityVisible
	VisibilityHidden
)

func (v Visibility) String() string {
	switch v {
	case VisibilityVisible:
		return "visible"
	case VisibilityHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Pointer is the result of a pointer query, in root coordinates.
type Pointer struct {
	SameScreen bool
	RootX      int16
	RootY      int16
}

// Event is a notification delivered by the X server for a watched window.
// Concrete types: ConfigureEvent, PropertyEvent.
type Event interface {
	isEvent()
}

// ConfigureEvent reports a structural change (move, resize, restack).
type ConfigureEvent struct {
	X      int16
	Y      int16
	Width  uint16
	Height uint16
}

// PropertyEvent reports that some property of the window changed.
type PropertyEvent struct{}

func (ConfigureEvent) isEvent() {}
func (PropertyEvent) isEvent()  {}

// WindowInfo describes a candidate capture target.
type WindowInfo struct {
	ID       Window
	Title    string
	Class    string
	Geometry Geometry
}
