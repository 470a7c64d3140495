package capture

import (
	"fmt"
	"time"

	"github.com/xwincast/xwincast/internal/x11"
)

// Fraction is a frame rate expressed as frames per second. The zero value
// means unconstrained.
type Fraction struct {
	Num int
	Den int
}

// defaultFrameRate is pinned onto unconstrained structures during fixation.
var defaultFrameRate = Fraction{Num: 25, Den: 1}

// IsZero reports whether the fraction is the unconstrained placeholder.
func (f Fraction) IsZero() bool {
	return f.Num == 0
}

// Interval converts the rate into the duration of one frame, truncated to
// whole milliseconds.
func (f Fraction) Interval() time.Duration {
	if f.Num <= 0 || f.Den <= 0 {
		return 0
	}
	return time.Duration(1000*f.Den/f.Num) * time.Millisecond
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// Structure is one alternative in a capability set. Zero-valued fields are
// unconstrained.
type Structure struct {
	Width     uint16
	Height    uint16
	Format    x11.PixelFormat
	FrameRate Fraction
}

// Caps is an ordered capability set, most preferred first.
type Caps []Structure

// DefaultCaps is the engine's broadest template: a single structure with
// every field unconstrained.
func DefaultCaps() Caps {
	return Caps{{}}
}

// Filter keeps the structures compatible with at least one structure of
// the filter. An empty filter passes everything.
func (c Caps) Filter(filter Caps) Caps {
	if len(filter) == 0 {
		return c
	}
	out := make(Caps, 0, len(c))
	for _, s := range c {
		for _, f := range filter {
			if s.compatible(f) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// compatible reports whether s satisfies every constrained field of f.
func (s Structure) compatible(f Structure) bool {
	if f.Width != 0 && s.Width != 0 && f.Width != s.Width {
		return false
	}
	if f.Height != 0 && s.Height != 0 && f.Height != s.Height {
		return false
	}
	if f.Format.BitsPerPixel != 0 && s.Format.BitsPerPixel != 0 && f.Format != s.Format {
		return false
	}
	if !f.FrameRate.IsZero() && !s.FrameRate.IsZero() && f.FrameRate != s.FrameRate {
		return false
	}
	return true
}

// QueryCaps answers a downstream format query. Without a connection it
// attempts to open one, and degrades to the unconstrained template if the
// display is unreachable or no window is configured. With a connection it
// reconciles pending updates and returns capabilities fixed to the current
// geometry and resolved format, frame rate left unconstrained. A format
// resolution failure yields no capabilities.
func (e *Engine) QueryCaps(filter Caps) Caps {
	sess, err := e.ensureSession()
	if err != nil {
		e.log.Warn().Err(err).Msg("capability query without display, returning template")
		return DefaultCaps().Filter(filter)
	}

	e.mu.Lock()
	win := e.window
	e.mu.Unlock()
	if win == 0 {
		return DefaultCaps().Filter(filter)
	}

	if _, err := e.reconcileIfDirty(); err != nil {
		e.log.Warn().Err(err).Msg("reconciliation failed during capability query, returning template")
		return DefaultCaps().Filter(filter)
	}

	format, err := sess.ResolveFormat(win)
	if err != nil {
		e.log.Error().Err(err).Msg("format resolution failed")
		return nil
	}

	e.mu.Lock()
	e.format = format
	geom := e.geom
	e.mu.Unlock()

	caps := Caps{{Width: geom.Width, Height: geom.Height, Format: format}}
	return caps.Filter(filter)
}

// AcceptCaps stores the frame interval implied by the negotiated frame
// rate. It fails when no connection is open or the caps carry no fixed rate.
func (e *Engine) AcceptCaps(caps Caps) error {
	e.mu.Lock()
	connected := e.session != nil
	e.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	if len(caps) == 0 {
		return fmt.Errorf("empty capability set")
	}

	rate := caps[0].FrameRate
	interval := rate.Interval()
	if interval <= 0 {
		return fmt.Errorf("capability set has no usable frame rate: %s", rate)
	}

	e.mu.Lock()
	e.interval = interval
	e.mu.Unlock()

	e.log.Debug().Stringer("rate", rate).Dur("interval", interval).
		Msg("frame rate negotiated")
	return nil
}

// Fixate pins every unconstrained frame rate in the offered caps to the
// default rate. Remaining fixation is the host's concern.
func (e *Engine) Fixate(caps Caps) Caps {
	out := make(Caps, len(caps))
	copy(out, caps)
	for i := range out {
		if out[i].FrameRate.IsZero() {
			out[i].FrameRate = defaultFrameRate
		}
	}
	return out
}

// renegotiate refreshes negotiated state after a geometry update. The host
// callback takes precedence; the internal default re-resolves the pixel
// format against the possibly reparented window.
func (e *Engine) renegotiate() error {
	if e.events.Renegotiate != nil {
		return e.events.Renegotiate()
	}

	e.mu.Lock()
	sess, win := e.session, e.window
	e.mu.Unlock()
	if sess == nil {
		return ErrNotConnected
	}

	format, err := sess.ResolveFormat(win)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.format = format
	e.mu.Unlock()
	return nil
}
