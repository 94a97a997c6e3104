// Package session owns the lifecycle of one capture run: locate the
// device, claim it, bring it up for the selected standard, relay the
// stream, and guarantee the device is reset and released on every exit
// path.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gchd-dev/gchd/internal/bringup"
	"github.com/gchd-dev/gchd/internal/fifo"
	"github.com/gchd-dev/gchd/internal/logger"
	"github.com/gchd-dev/gchd/internal/relay"
	"github.com/gchd-dev/gchd/internal/usb"
)

// State tracks how far a session has progressed. Transitions only move
// forward, except that any state may jump to StateTerminating.
type State int

const (
	StateIdle State = iota
	StateLocated
	StateClaimed
	StateConfigured
	StateStreaming
	StateTerminating
	StateDone
)

// String returns the state name for logs
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocated:
		return "located"
	case StateClaimed:
		return "claimed"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StateTerminating:
		return "terminating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options configures a session
type Options struct {
	// Standard is the capture mode to bring the device up for
	Standard bringup.Standard

	// FifoPath is where the consumer channel node is created
	FifoPath string

	// ChunkSize is the bulk transfer size; zero selects the default
	ChunkSize int
}

// Session aggregates all per-run state: the device handle, the consumer
// channel, the running flag and the configured flag. Only the main
// goroutine mutates device and channel state; the signal path touches
// nothing but the running flag.
type Session struct {
	opts   Options
	opener usb.Opener

	// backendCloser shuts down the USB subsystem context during
	// teardown, when the opener has one (the libusb backend does; test
	// fakes don't).
	backendCloser io.Closer

	dev     usb.Device
	channel *fifo.Channel

	running    atomic.Bool
	stop       chan struct{}
	configured bool
	torn       bool

	state State
	log   *zerolog.Logger
}

// New creates a session that will open devices through opener.
// backendCloser may be nil; when set it is closed as part of teardown.
func New(opts Options, opener usb.Opener, backendCloser io.Closer) *Session {
	s := &Session{
		opts:          opts,
		opener:        opener,
		backendCloser: backendCloser,
		stop:          make(chan struct{}),
		state:         StateIdle,
		log:           logger.WithComponent("session"),
	}
	s.running.Store(true)
	return s
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Stop requests a graceful shutdown: it clears the running flag and wakes
// any blocking point selecting on it. Safe to call from any goroutine and
// more than once.
func (s *Session) Stop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.stop)
	}
}

// Run drives the session from Idle to Done. It returns the error that
// ended the run, or nil after a clean interrupt. Teardown has always run
// by the time Run returns, whichever stage failed.
func (s *Session) Run() error {
	defer s.Teardown()

	cleanup := s.installSignals()
	defer cleanup()

	dev, err := usb.Locate(s.opener)
	if err != nil {
		return err
	}
	s.dev = dev
	s.state = StateLocated

	if err := usb.Claim(s.dev); err != nil {
		return err
	}
	s.state = StateClaimed

	channel, err := fifo.Create(s.opts.FifoPath)
	if err != nil {
		return err
	}
	s.channel = channel

	s.log.Info().
		Str("path", channel.Path()).
		Msg("FIFO has been created. Waiting for consumer to open it.")

	attached, err := s.waitForConsumer()
	if err != nil {
		return err
	}
	if !attached {
		// Interrupted before a reader attached. The device was never
		// configured, so teardown skips the reset.
		return nil
	}

	if !s.running.Load() {
		return nil
	}

	if err := bringup.Configure(s.dev, s.opts.Standard); err != nil {
		return err
	}
	s.configured = true
	s.state = StateConfigured

	s.log.Info().Msg("Streaming data from device now.")
	s.state = StateStreaming

	return relay.New(s.dev, s.channel, s.opts.ChunkSize).Run(&s.running)
}

// waitForConsumer blocks until a reader opens the FIFO or the session is
// stopped. It reports whether a reader attached; a failure to open the
// pipe at all is an error, not a quiet no. The open(2) itself cannot be
// cancelled, so it runs in its own goroutine; if it outlives the session,
// the channel's close-once semantics discard the late descriptor.
func (s *Session) waitForConsumer() (bool, error) {
	opened := make(chan error, 1)
	go func() {
		opened <- s.channel.Open()
	}()

	select {
	case err := <-opened:
		if err != nil {
			if errors.Is(err, fifo.ErrClosed) {
				return false, nil
			}
			return false, fmt.Errorf("open consumer channel: %w", err)
		}
		return true, nil
	case <-s.stop:
		return false, nil
	}
}

// installSignals wires SIGINT and SIGTERM to the running flag and ignores
// SIGPIPE so a vanished consumer surfaces as a write error instead of
// killing the process. The signal path does nothing beyond clearing the
// flag; all teardown work stays on the main goroutine. The returned func
// unregisters the handler.
func (s *Session) installSignals() func() {
	signal.Ignore(syscall.SIGPIPE)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		s.log.Warn().
			Str("signal", sig.String()).
			Msg("Stop signal received. Your device is going to be reset. Please wait and do not interrupt or unplug your device.")
		s.Stop()
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

// Teardown returns every acquired resource, best effort: each step is
// attempted even when an earlier one fails, and a second call is a no-op.
// The device reset is issued only when a bring-up sequence completed;
// resetting a never-configured device is undefined.
func (s *Session) Teardown() {
	if s.torn {
		return
	}
	s.torn = true
	s.state = StateTerminating

	if s.dev != nil {
		if s.configured {
			if err := bringup.Reset(s.dev); err != nil {
				s.log.Error().Err(err).Msg("Failed to reset device")
			} else {
				s.log.Info().Msg("Device has been reset.")
			}
		}

		if err := s.dev.ReleaseInterface(usb.InterfaceNumber); err != nil {
			s.log.Warn().Err(err).Msg("Failed to release interface")
		}
		if err := s.dev.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close device")
		}
		s.dev = nil
	}

	if s.backendCloser != nil {
		if err := s.backendCloser.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close USB context")
		}
	}

	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close FIFO")
		}
		if err := s.channel.Remove(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to remove FIFO")
		}
	}

	s.state = StateDone
	s.log.Info().Msg("Terminating.")
}
