package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/xwincast/xwincast/internal/capture"
	"github.com/xwincast/xwincast/internal/logger"
	"github.com/xwincast/xwincast/internal/output"
	"github.com/xwincast/xwincast/internal/x11"
)

// WindowState is the engine's externally visible state.
type WindowState struct {
	ID         uint32 `json:"id"`
	X          int16  `json:"x"`
	Y          int16  `json:"y"`
	Width      uint16 `json:"width"`
	Height     uint16 `json:"height"`
	Visibility string `json:"visibility"`
	Format     string `json:"format"`
}

// Event is one notification pushed over the websocket stream.
type Event struct {
	Type       string `json:"type"`
	Width      uint16 `json:"width,omitempty"`
	Height     uint16 `json:"height,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

// Server exposes engine state and the preview stream over HTTP.
type Server struct {
	router   *mux.Router
	engine   *capture.Engine
	stream   *output.Stream
	upgrader websocket.Upgrader

	subsMu sync.Mutex
	subs   map[chan Event]struct{}
}

// NewServer wires the API routes for an engine and its preview stream.
func NewServer(engine *capture.Engine, stream *output.Stream) *Server {
	s := &Server{
		router: mux.NewRouter(),
		engine: engine,
		stream: stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[chan Event]struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/window", s.handleWindow).Methods("GET")
	api.HandleFunc("/window/events", s.handleWindowEvents)

	s.router.HandleFunc("/snapshot", s.handleSnapshot).Methods("GET")
	s.router.Handle("/stream", s.stream).Methods("GET")
}

// Start serves the API on the given port, blocking.
func (s *Server) Start(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.router)
}

// PublishResize pushes a resize event to websocket subscribers.
func (s *Server) PublishResize(width, height uint16) {
	s.publish(Event{Type: "resize", Width: width, Height: height})
}

// PublishVisibility pushes a visibility event to websocket subscribers.
func (s *Server) PublishVisibility(v x11.Visibility) {
	s.publish(Event{Type: "visibility", Visibility: v.String()})
}

func (s *Server) publish(ev Event) {
	s.subsMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up, drop the event.
		}
	}
	s.subsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"frames": s.stream.FrameCount(),
	})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	geom := s.engine.Geometry()
	state := WindowState{
		ID:         uint32(s.engine.Window()),
		X:          geom.X,
		Y:          geom.Y,
		Width:      geom.Width,
		Height:     geom.Height,
		Visibility: s.engine.Visibility().String(),
		Format:     s.engine.Format().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

func (s *Server) handleWindowEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan Event, 8)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	defer func() {
		s.subsMu.Lock()
		delete(s.subs, ch)
		s.subsMu.Unlock()
	}()

	// Initial state so clients need not poll.
	geom := s.engine.Geometry()
	initial := Event{Type: "resize", Width: geom.Width, Height: geom.Height}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data := s.stream.Snapshot()
	if data == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}
