// Package relay pumps transport stream data from the device into the
// consumer channel. It is the process's steady state: the loop has no
// termination condition of its own and runs until the running flag clears
// or a fatal error occurs.
package relay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/gchd-dev/gchd/internal/logger"
	"github.com/gchd-dev/gchd/internal/usb"
)

// DefaultChunkSize matches the device's bulk transfer size
const DefaultChunkSize = 0x4000

// defaultMaxFaults caps consecutive non-timeout device errors before the
// loop gives up, so a dead device cannot spin the loop forever
const defaultMaxFaults = 10

// Source produces transport stream chunks. usb.Device satisfies it.
type Source interface {
	BulkRead(p []byte) (int, error)
}

// Relay forwards device data to a sink in arrival order, one chunk per
// cycle, relying on the sink's blocking for flow control.
type Relay struct {
	source    Source
	sink      io.Writer
	chunkSize int
	maxFaults int
}

// New creates a relay from source to sink. chunkSize <= 0 selects the
// device's native transfer size.
func New(source Source, sink io.Writer, chunkSize int) *Relay {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Relay{
		source:    source,
		sink:      sink,
		chunkSize: chunkSize,
		maxFaults: defaultMaxFaults,
	}
}

// Run loops until the running flag clears or a fatal condition stops the
// stream. A nil return means the flag was observed false; a non-nil return
// is fatal and the caller must proceed to teardown. An in-flight cycle is
// never interrupted; the flag is checked between cycles.
func (r *Relay) Run(running *atomic.Bool) error {
	log := logger.WithComponent("relay")
	buf := make([]byte, r.chunkSize)
	faults := 0

	for running.Load() {
		n, err := r.source.BulkRead(buf)

		// Forward whatever arrived before deciding about the error;
		// dropping a partial chunk would reorder the stream.
		if n > 0 {
			if _, werr := r.sink.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write to consumer: %w", werr)
			}
		}

		if err == nil {
			faults = 0
			continue
		}

		switch classify(err) {
		case kindTransient:
			// No data ready (no signal on the input, or a soft
			// transfer fault). Keep cycling.
			log.Debug().Err(err).Msg("Transfer yielded no data")
			faults = 0
		case kindDeviceFault:
			faults++
			if faults >= r.maxFaults {
				return fmt.Errorf("device stopped producing data: %w", err)
			}
			log.Warn().Err(err).Int("consecutive", faults).Msg("Transfer failed")
		case kindFatal:
			return fmt.Errorf("stream ended: %w", err)
		}
	}

	return nil
}

// errKind classifies a device read error
type errKind int

const (
	// kindTransient errors are expected in normal operation and never
	// stop the loop
	kindTransient errKind = iota

	// kindDeviceFault errors stop the loop only when they persist
	kindDeviceFault

	// kindFatal errors stop the loop immediately
	kindFatal
)

func classify(err error) errKind {
	switch {
	case errors.Is(err, usb.ErrTimeout), os.IsTimeout(err):
		return kindTransient
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, os.ErrClosed):
		return kindFatal
	default:
		return kindDeviceFault
	}
}
