package capture

import (
	"fmt"
	"time"

	"github.com/xwincast/xwincast/internal/x11"
)

// Frame is one produced capture: the raw pixel bytes of the window plus
// how long the frame should be displayed at the negotiated rate.
type Frame struct {
	Data     []byte
	Duration time.Duration
}

// Produce delivers the next frame for a downstream pull. When the
// negotiated interval has not yet elapsed, or when the image fetch fails
// but an earlier frame exists, the cached last frame is returned instead
// of touching the wire; a pull only fails when there is nothing to fall
// back on.
func (e *Engine) Produce() (*Frame, error) {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return nil, ErrNotConnected
	}
	if !e.lastAt.IsZero() && time.Since(e.lastAt) < e.interval && e.last != nil {
		f := e.last
		e.mu.Unlock()
		e.log.Trace().Msg("throttled, reusing cached frame")
		return f, nil
	}
	e.mu.Unlock()

	updated, err := e.reconcileIfDirty()
	if err != nil {
		return nil, fmt.Errorf("%w: reconciliation: %v", ErrFlow, err)
	}
	if updated {
		if err := e.renegotiate(); err != nil {
			return nil, fmt.Errorf("%w: renegotiation: %v", ErrFlow, err)
		}
	}

	e.mu.Lock()
	sess, win := e.session, e.window
	geom := e.geom
	interval := e.interval
	showCursor := e.showCursor
	e.mu.Unlock()

	data, err := sess.FetchImage(win, geom)
	if err != nil {
		e.mu.Lock()
		last := e.last
		e.mu.Unlock()
		if last != nil {
			e.log.Trace().Err(err).Msg("image fetch failed, falling back to last frame")
			return last, nil
		}
		return nil, fmt.Errorf("%w: image fetch: %v", ErrFlow, err)
	}

	if showCursor {
		e.checkPointer(sess, geom)
	}

	frame := &Frame{Data: data, Duration: interval}
	e.mu.Lock()
	e.last = frame
	e.lastAt = time.Now()
	e.mu.Unlock()
	return frame, nil
}

// checkPointer establishes whether the pointer currently sits inside the
// window by translating root coordinates through the cached position.
// Compositing the cursor into the frame is intentionally not implemented;
// the position is only traced.
func (e *Engine) checkPointer(sess Session, geom x11.Geometry) {
	ptr, err := sess.Pointer()
	if err != nil {
		e.log.Trace().Err(err).Msg("pointer query failed")
		return
	}
	if !ptr.SameScreen {
		return
	}

	wx := int(ptr.RootX) - int(geom.X)
	wy := int(ptr.RootY) - int(geom.Y)
	inside := wx >= 0 && wy >= 0 && wx < int(geom.Width) && wy < int(geom.Height)
	e.log.Trace().Int("x", wx).Int("y", wy).Bool("inside", inside).
		Msg("pointer position (cursor overlay not rendered)")
}
