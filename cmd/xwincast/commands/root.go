package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xwincast/xwincast/internal/config"
	"github.com/xwincast/xwincast/internal/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "xwincast",
		Short: "xwincast - live X11 window capture",
		Long: `xwincast captures a single X11 window as a live stream of raw frames,
tracking its geometry and visibility while it moves, resizes, or hides.

Captured frames are served as an MJPEG preview with a small HTTP API for
window state and live resize/visibility events.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/xwincast/config.yaml)")
	rootCmd.PersistentFlags().String("display", "", "X display to connect to (default is $DISPLAY)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP port for the API and preview stream")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")

	viper.BindPFlag("display", rootCmd.PersistentFlags().Lookup("display"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// loadConfig reads the effective configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
