package bringup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controlCall struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	data        []byte
}

// fakeDevice records every vendor operation so tests can assert on the
// sequence a script produced
type fakeDevice struct {
	controls   []controlCall
	bulkWrites [][]byte

	failControlAfter int // fail the n+1th control transfer; -1 never
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{failControlAfter: -1}
}

func (d *fakeDevice) SetConfiguration(config int) error { return nil }

func (d *fakeDevice) ClaimInterface(iface int) error { return nil }

func (d *fakeDevice) ReleaseInterface(iface int) error { return nil }

func (d *fakeDevice) BulkRead(p []byte) (int, error) { return 0, nil }

func (d *fakeDevice) Close() error { return nil }

func (d *fakeDevice) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	if d.failControlAfter >= 0 && len(d.controls) >= d.failControlAfter {
		return 0, errors.New("pipe stalled")
	}
	recorded := make([]byte, len(data))
	copy(recorded, data)
	d.controls = append(d.controls, controlCall{requestType, request, value, index, recorded})
	return len(data), nil
}

func (d *fakeDevice) BulkWrite(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)
	d.bulkWrites = append(d.bulkWrites, data)
	return len(p), nil
}

func TestConfigureRunsFullSequence(t *testing.T) {
	dev := newFakeDevice()

	require.NoError(t, Configure(dev, Standard1080p))

	// The sequence ends with the firmware start command followed by a
	// state readback.
	require.NotEmpty(t, dev.bulkWrites)
	start := dev.bulkWrites[len(dev.bulkWrites)-1]
	require.Len(t, start, 6)
	assert.Equal(t, cmdFirmwareState, start[0])
	assert.Equal(t, byte(firmwareStart), start[5])

	// Geometry registers carry the 1080p frame size.
	var width, height uint16
	for _, c := range dev.controls {
		if c.requestType != requestTypeVendorOut || len(c.data) != 2 {
			continue
		}
		switch c.value {
		case regHorizSize:
			width = uint16(c.data[0])<<8 | uint16(c.data[1])
		case regVertSize:
			height = uint16(c.data[0])<<8 | uint16(c.data[1])
		}
	}
	assert.Equal(t, uint16(1920), width)
	assert.Equal(t, uint16(1080), height)
}

func TestConfigureSurfacesTransferErrors(t *testing.T) {
	dev := newFakeDevice()
	dev.failControlAfter = 2

	err := Configure(dev, Standard720p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hdmi-720p")
}

func TestResetStopsEncoderFirst(t *testing.T) {
	dev := newFakeDevice()

	require.NoError(t, Reset(dev))

	require.NotEmpty(t, dev.bulkWrites)
	stop := dev.bulkWrites[0]
	require.Len(t, stop, 6)
	assert.Equal(t, cmdFirmwareState, stop[0])
	assert.Equal(t, byte(firmwareStop), stop[5])

	// The front end is powered down after the stop command.
	var poweredDown bool
	for _, c := range dev.controls {
		if c.value == regPowerDown {
			poweredDown = true
		}
	}
	assert.True(t, poweredDown)
}
