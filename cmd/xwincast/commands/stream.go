package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xwincast/xwincast/internal/api"
	"github.com/xwincast/xwincast/internal/capture"
	"github.com/xwincast/xwincast/internal/logger"
	"github.com/xwincast/xwincast/internal/output"
	"github.com/xwincast/xwincast/internal/x11"
)

var streamCmd = &cobra.Command{
	Use:   "stream <window-id>",
	Short: "Capture a window and serve it as an MJPEG stream",
	Long: `Capture the given X11 window and serve its contents over HTTP.

The window id may be decimal or 0x-prefixed hexadecimal; use "xwincast list"
to find one. The stream follows the window through resizes, and the API
exposes its live geometry and visibility.`,
	Example: `  # Capture window 0x3c00007 and serve on the default port
  xwincast stream 0x3c00007

  # Decimal id, custom port, cursor position tracking enabled
  xwincast stream 62914567 --port 9090 --show-cursor`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

var streamShowCursor bool

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.Flags().BoolVar(&streamShowCursor, "show-cursor", false, "track the pointer position inside the window")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("stream")

	win, err := capture.ParseWindowID(args[0])
	if err != nil {
		return err
	}

	stream := output.NewStream(output.Options{
		Quality:  cfg.JPEGQuality,
		MaxWidth: cfg.MaxPreviewWidth,
	})
	defer stream.Close()

	connect := func() (capture.Session, error) {
		return x11.Connect(cfg.Display)
	}

	var server *api.Server
	engine := capture.New(connect, capture.Options{
		Events: capture.Events{
			Resize: func(w, h uint16) {
				log.Info().Uint16("width", w).Uint16("height", h).Msg("window resized")
				server.PublishResize(w, h)
			},
			WidthChanged: func(w uint16) {
				log.Debug().Uint16("width", w).Msg("width changed")
			},
			HeightChanged: func(h uint16) {
				log.Debug().Uint16("height", h).Msg("height changed")
			},
			VisibilityChanged: func(v x11.Visibility) {
				log.Info().Stringer("visibility", v).Msg("visibility changed")
				server.PublishVisibility(v)
			},
		},
	})
	server = api.NewServer(engine, stream)

	engine.SetWindow(win)
	engine.SetShowCursor(streamShowCursor || cfg.ShowCursor)

	// Negotiate the frame rate the way a downstream consumer would.
	caps := engine.QueryCaps(nil)
	if len(caps) == 0 {
		return fmt.Errorf("window %#x offers no capture capabilities", uint32(win))
	}
	fixed := engine.Fixate(caps)
	if cfg.FrameRate > 0 {
		fixed[0].FrameRate = capture.Fraction{Num: cfg.FrameRate, Den: 1}
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start capture engine: %w", err)
	}
	defer engine.Stop()

	if err := engine.AcceptCaps(fixed); err != nil {
		return fmt.Errorf("failed to negotiate frame rate: %w", err)
	}

	log.Info().
		Uint32("window", uint32(win)).
		Uint16("width", engine.Width()).
		Uint16("height", engine.Height()).
		Str("format", engine.Format().String()).
		Stringer("rate", fixed[0].FrameRate).
		Msg("capture negotiated")

	go func() {
		log.Info().Int("port", cfg.Port).Msg("serving preview and API")
		if err := server.Start(cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-stop:
			log.Info().Msg("shutting down")
			return nil
		default:
		}

		frame, err := engine.Produce()
		if err != nil {
			log.Error().Err(err).Msg("frame production failed")
			time.Sleep(engine.Interval())
			continue
		}

		geom := engine.Geometry()
		if err := stream.WriteFrame(frame.Data, int(geom.Width), int(geom.Height), engine.Format()); err != nil {
			log.Warn().Err(err).Msg("frame conversion failed")
		}

		time.Sleep(frame.Duration)
	}
}
