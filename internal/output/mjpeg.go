package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/xwincast/xwincast/internal/logger"
	"github.com/xwincast/xwincast/internal/x11"
)

// Options configures the MJPEG preview stream.
type Options struct {
	// Quality is the JPEG encoder quality (1-100).
	Quality int

	// MaxWidth downscales frames wider than this; zero disables scaling.
	MaxWidth int
}

// Stream broadcasts produced frames as Motion JPEG over HTTP, letting any
// browser act as the downstream consumer.
type Stream struct {
	opts Options

	frameMu  sync.RWMutex
	lastJPEG []byte
	lastAt   time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameCount uint64
}

// NewStream creates an MJPEG stream output.
func NewStream(opts Options) *Stream {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	return &Stream{
		opts:    opts,
		clients: make(map[chan []byte]struct{}),
	}
}

// WriteFrame converts a raw captured frame, encodes it, and fans it out to
// every connected client. Slow clients skip frames instead of blocking.
func (s *Stream) WriteFrame(data []byte, width, height int, format x11.PixelFormat) error {
	img, err := ToRGBA(data, width, height, format)
	if err != nil {
		return err
	}

	var src image.Image = img
	if s.opts.MaxWidth > 0 && width > s.opts.MaxWidth {
		scaledH := height * s.opts.MaxWidth / width
		dst := image.NewRGBA(image.Rect(0, 0, s.opts.MaxWidth, scaledH))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		src = dst
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, src, &jpeg.Options{Quality: s.opts.Quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	s.frameMu.Lock()
	s.lastJPEG = jpegData
	s.lastAt = time.Now()
	s.frameCount++
	s.frameMu.Unlock()

	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame.
		}
	}
	s.clientsMu.RUnlock()
	return nil
}

// Snapshot returns the most recent JPEG frame, or nil before the first one.
func (s *Stream) Snapshot() []byte {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.lastJPEG
}

// FrameCount returns the number of frames written so far.
func (s *Stream) FrameCount() uint64 {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frameCount
}

// Close disconnects every client.
func (s *Stream) Close() {
	s.clientsMu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan []byte]struct{})
	s.clientsMu.Unlock()
}

// ServeHTTP streams frames to one client as multipart/x-mixed-replace.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("mjpeg")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "close")

	frameChan := make(chan []byte, 2)
	s.clientsMu.Lock()
	s.clients[frameChan] = struct{}{}
	count := len(s.clients)
	s.clientsMu.Unlock()
	log.Info().Int("clients", count).Msg("stream client connected")

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, frameChan)
		count := len(s.clients)
		s.clientsMu.Unlock()
		log.Info().Int("clients", count).Msg("stream client disconnected")
	}()

	for jpegData := range frameChan {
		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
			return
		}
		if _, err := w.Write(jpegData); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
