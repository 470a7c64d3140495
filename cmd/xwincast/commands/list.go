package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xwincast/xwincast/internal/x11"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable windows",
	Long: `List the windows known to the window manager, with the ids accepted by
"xwincast stream" and "xwincast probe".`,
	Example: `  # List windows in table format (default)
  xwincast list

  # List windows in JSON format
  xwincast list --format json`,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := x11.Connect(cfg.Display)
	if err != nil {
		return err
	}
	defer sess.Close()

	windows, err := sess.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	switch listFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		return printWindowTable(windows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}
}

func printWindowTable(windows []x11.WindowInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tCLASS\tGEOMETRY\tTITLE")
	fmt.Fprintln(w, "--\t-----\t--------\t-----")
	for _, win := range windows {
		fmt.Fprintf(w, "%#x\t%s\t%dx%d+%d+%d\t%s\n",
			uint32(win.ID), win.Class,
			win.Geometry.Width, win.Geometry.Height,
			win.Geometry.X, win.Geometry.Y,
			win.Title)
	}
	return nil
}
