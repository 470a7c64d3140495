package capture

import (
	"time"

	"github.com/xwincast/xwincast/internal/x11"
)

// watchPollInterval paces the watcher's non-blocking event polls.
const watchPollInterval = 50 * time.Millisecond

// watcher holds the shutdown handles for the background event goroutine.
// stop is closed by Stop; done is closed by the goroutine on exit, so
// Stop's join cannot return while a dirty-flag write is still possible.
type watcher struct {
	stop chan struct{}
	done chan struct{}
}

func (e *Engine) startWatcher(win x11.Window) {
	w := &watcher{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.mu.Lock()
	e.watch = w
	e.mu.Unlock()

	go e.watchLoop(w, win)
}

func (e *Engine) stopWatcher() {
	e.mu.Lock()
	w := e.watch
	e.watch = nil
	e.mu.Unlock()

	if w == nil {
		return
	}
	close(w.stop)
	<-w.done
}

// watchLoop runs on its own X connection and marks the shared dirty flag
// when the target window's structure or properties change. It never
// touches the pull path's connection. A connection or registration failure
// degrades the watcher to an idle loop instead of killing capture.
func (e *Engine) watchLoop(w *watcher, win x11.Window) {
	defer close(w.done)
	log := e.log.With().Str("role", "watcher").Logger()

	sess, err := e.connect()
	if err != nil {
		log.Error().Err(err).Msg("watcher connection failed, resize tracking disabled")
		e.idleLoop(w)
		return
	}
	defer sess.Close()

	if err := sess.WatchWindow(win); err != nil {
		log.Error().Err(err).Msg("event registration failed, resize tracking disabled")
		e.idleLoop(w)
		return
	}

	e.mu.Lock()
	lastW, lastH := e.geom.Width, e.geom.Height
	e.mu.Unlock()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}

		ev, err := sess.PollEvent()
		if err != nil {
			log.Debug().Err(err).Msg("event poll failed")
			continue
		}

		switch ev := ev.(type) {
		case x11.ConfigureEvent:
			// Relocation without a size change must not reach the
			// producer at all.
			if ev.Width == lastW && ev.Height == lastH {
				continue
			}
			lastW, lastH = ev.Width, ev.Height
			log.Trace().Uint16("width", ev.Width).Uint16("height", ev.Height).
				Msg("structure change")
			e.markDirty()
		case x11.PropertyEvent:
			// Visibility may have changed; cannot cheaply tell which
			// property did, so always mark.
			e.markDirty()
		}
	}
}

// idleLoop keeps a degraded watcher joinable until Stop.
func (e *Engine) idleLoop(w *watcher) {
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}
	}
}
