package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gchd-dev/gchd/internal/bringup"
	"github.com/gchd-dev/gchd/internal/config"
	"github.com/gchd-dev/gchd/internal/firmware"
	"github.com/gchd-dev/gchd/internal/logger"
	"github.com/gchd-dev/gchd/internal/session"
	"github.com/gchd-dev/gchd/internal/usb/libusb"
)

func runCapture(cmd *cobra.Command, args []string) error {
	// Initialize configuration manager
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Flags override the config file
	if viper.IsSet("resolution") && viper.GetString("resolution") != "" {
		configMgr.SetResolution(viper.GetString("resolution"))
	}
	if viper.IsSet("fifo_path") && viper.GetString("fifo_path") != "" {
		configMgr.SetFifoPath(viper.GetString("fifo_path"))
	}
	if viper.IsSet("firmware_dir") && viper.GetString("firmware_dir") != "" {
		configMgr.SetFirmwareDir(viper.GetString("firmware_dir"))
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		configMgr.SetLogLevel(viper.GetString("log_level"))
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("gchd")

	// The resolution token must resolve before anything touches the
	// device; an unknown token is a startup failure, not a fallback.
	std, err := bringup.ParseStandard(cfg.Resolution)
	if err != nil {
		return err
	}

	// The device loads these blobs during bring-up; without them there
	// is no point opening it.
	if err := firmware.Check(cfg.FirmwareDir); err != nil {
		return err
	}

	log.Info().
		Str("standard", std.String()).
		Str("fifo", cfg.FifoPath).
		Msg("Starting capture")

	backend := libusb.NewBackend(time.Duration(cfg.ReadTimeoutMS) * time.Millisecond)

	sess := session.New(session.Options{
		Standard:  std,
		FifoPath:  cfg.FifoPath,
		ChunkSize: cfg.ChunkSize,
	}, backend, backend)

	return sess.Run()
}
