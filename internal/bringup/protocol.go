package bringup

import (
	"fmt"
	"time"

	"github.com/gchd-dev/gchd/internal/logger"
	"github.com/gchd-dev/gchd/internal/usb"
)

// Vendor control request fields. Register access goes through request
// 0xbc on endpoint 0; encoder commands are 6-byte blocks on the bulk
// command endpoint.
const (
	requestTypeVendorOut uint8 = 0x40
	requestTypeVendorIn  uint8 = 0xc0
	requestRegister      uint8 = 0xbc
)

// Protocol is a device bring-up sequence for one video standard
type Protocol interface {
	// Name identifies the sequence in logs
	Name() string

	// Apply runs the full sequence against a claimed device. On error
	// the device may be left in an indeterminate pre-streaming state;
	// the caller must not treat it as configured.
	Apply(dev usb.Device) error
}

// ForStandard returns the bring-up protocol for a standard. Every value of
// the enumeration maps to exactly one protocol.
func ForStandard(std Standard) (Protocol, error) {
	p, ok := protocols[std]
	if !ok {
		return nil, fmt.Errorf("no bring-up protocol for standard %v", std)
	}
	return p, nil
}

// Configure runs the bring-up protocol for std against the device. It
// returns nil only when the whole sequence completed; the caller records
// that fact, since a configured device must be reset before release.
func Configure(dev usb.Device, std Standard) error {
	p, err := ForStandard(std)
	if err != nil {
		return err
	}

	log := logger.WithComponent("bringup")
	log.Info().Str("standard", std.String()).Msg("Running. Initializing device.")

	if err := p.Apply(dev); err != nil {
		return fmt.Errorf("bring-up %s: %w", p.Name(), err)
	}

	log.Debug().Str("standard", std.String()).Msg("Bring-up sequence complete")
	return nil
}

// Reset returns a configured device to idle. Only safe after a bring-up
// sequence has completed; resetting a never-configured device is
// undefined.
func Reset(dev usb.Device) error {
	if err := resetScript.Apply(dev); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// stepKind selects the operation a script step performs
type stepKind int

const (
	stepRegisterWrite stepKind = iota
	stepRegisterRead
	stepCommand
	stepPause
)

// step is a single vendor operation within a bring-up script
type step struct {
	kind  stepKind
	value uint16
	index uint16
	data  []byte
	pause time.Duration
}

// script is an ordered bring-up sequence. Steps run front to back; the
// first failure aborts the script.
type script struct {
	name  string
	steps []step
}

func (s *script) Name() string { return s.name }

func (s *script) Apply(dev usb.Device) error {
	for i, st := range s.steps {
		if err := s.run(dev, st); err != nil {
			return fmt.Errorf("step %d/%d: %w", i+1, len(s.steps), err)
		}
	}
	return nil
}

func (s *script) run(dev usb.Device, st step) error {
	switch st.kind {
	case stepRegisterWrite:
		_, err := dev.Control(requestTypeVendorOut, requestRegister, st.value, st.index, st.data)
		return err
	case stepRegisterRead:
		buf := make([]byte, len(st.data))
		if _, err := dev.Control(requestTypeVendorIn, requestRegister, st.value, st.index, buf); err != nil {
			return err
		}
		return nil
	case stepCommand:
		_, err := dev.BulkWrite(st.data)
		return err
	case stepPause:
		time.Sleep(st.pause)
		return nil
	default:
		return fmt.Errorf("unknown step kind %d", st.kind)
	}
}

// regWrite writes a 16-bit value into an encoder register
func regWrite(value, index uint16, hi, lo byte) step {
	return step{kind: stepRegisterWrite, value: value, index: index, data: []byte{hi, lo}}
}

// regRead polls an encoder register; the response is discarded, the
// transfer itself acts as a state barrier
func regRead(value, index uint16, length int) step {
	return step{kind: stepRegisterRead, value: value, index: index, data: make([]byte, length)}
}

// command issues a 6-byte encoder command block on the bulk command
// endpoint
func command(cmd, mode byte, data uint16) step {
	return step{kind: stepCommand, data: []byte{cmd, mode, 0x00, 0x00, byte(data >> 8), byte(data)}}
}

// pause waits for the encoder to settle between phases
func pause(d time.Duration) step {
	return step{kind: stepPause, pause: d}
}
