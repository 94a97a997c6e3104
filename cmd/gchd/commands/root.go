package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "gchd",
		Short: "gchd - Elgato Game Capture HD userspace driver",
		Long: `gchd claims an Elgato Game Capture HD over USB, initializes it for the
requested video standard and streams the captured MPEG transport stream
to a FIFO until interrupted.

Point a player at the FIFO once gchd reports it is waiting:

  vlc /tmp/elgato_gchd.ts

The device is reset and released on exit, including Ctrl+C.`,
		Example: `  # Capture 720p HDMI (the default)
  gchd

  # Capture 1080p HDMI
  gchd --resolution 1080p

  # Component input, custom FIFO location
  gchd -r c1080i --fifo /run/gchd/capture.ts`,
		SilenceUsage: true,
		RunE:         runCapture,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/gchd/config.yaml)")

	rootCmd.Flags().StringP("resolution", "r", "", "capture standard (720p, 1080p, 576i, c576p, c720p, c1080i, c1080p)")
	rootCmd.Flags().String("fifo", "", "path of the transport stream FIFO")
	rootCmd.Flags().String("firmware-dir", "", "directory containing the encoder firmware")
	rootCmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("resolution", rootCmd.Flags().Lookup("resolution"))
	viper.BindPFlag("fifo_path", rootCmd.Flags().Lookup("fifo"))
	viper.BindPFlag("firmware_dir", rootCmd.Flags().Lookup("firmware-dir"))
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
