package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xwincast/xwincast/internal/capture"
	"github.com/xwincast/xwincast/internal/x11"
)

var probeCmd = &cobra.Command{
	Use:   "probe <window-id>",
	Short: "Print a window's geometry, visibility, and pixel format",
	Long: `Query a window once and print what a capture of it would look like:
its current geometry, its visibility classification, and the pixel format
frames would carry.`,
	Example: `  xwincast probe 0x3c00007`,
	Args:    cobra.ExactArgs(1),
	RunE:    runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	win, err := capture.ParseWindowID(args[0])
	if err != nil {
		return err
	}

	sess, err := x11.Connect(cfg.Display)
	if err != nil {
		return err
	}
	defer sess.Close()

	geom, err := sess.Geometry(win)
	if err != nil {
		return fmt.Errorf("failed to query geometry: %w", err)
	}

	vis, err := sess.Visibility(win)
	if err != nil {
		return fmt.Errorf("failed to query visibility: %w", err)
	}

	format, err := sess.ResolveFormat(win)
	if err != nil {
		return fmt.Errorf("failed to resolve pixel format: %w", err)
	}

	fmt.Printf("Window:     %#x\n", uint32(win))
	fmt.Printf("Screen:     %d\n", sess.ScreenIndex())
	fmt.Printf("Geometry:   %dx%d at (%d, %d)\n", geom.Width, geom.Height, geom.X, geom.Y)
	fmt.Printf("Visibility: %s\n", vis)
	fmt.Printf("Format:     %s\n", format)
	return nil
}
