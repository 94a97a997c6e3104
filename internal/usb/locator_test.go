package usb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpener simulates which product IDs are attached
type fakeOpener struct {
	attached map[uint16]*fakeHandle
	probes   []uint16
}

func (o *fakeOpener) Open(vid, pid uint16) (Device, error) {
	o.probes = append(o.probes, pid)
	if vid != VendorID {
		return nil, nil
	}
	if dev, ok := o.attached[pid]; ok {
		return dev, nil
	}
	return nil, nil
}

// fakeHandle implements Device with controllable claim failures
type fakeHandle struct {
	configErr error
	claimErr  error

	configured bool
	claimed    bool
	released   int
	closed     int
}

func (d *fakeHandle) SetConfiguration(config int) error {
	if d.configErr != nil {
		return d.configErr
	}
	d.configured = true
	return nil
}

func (d *fakeHandle) ClaimInterface(iface int) error {
	if d.claimErr != nil {
		return d.claimErr
	}
	d.claimed = true
	return nil
}

func (d *fakeHandle) ReleaseInterface(iface int) error { d.released++; return nil }

func (d *fakeHandle) Close() error { d.closed++; return nil }

func (d *fakeHandle) BulkRead(p []byte) (int, error) { return 0, nil }

func (d *fakeHandle) BulkWrite(p []byte) (int, error) { return len(p), nil }

func (d *fakeHandle) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	return len(data), nil
}

func TestLocateFindsFirstSupportedRevision(t *testing.T) {
	want := &fakeHandle{}
	opener := &fakeOpener{attached: map[uint16]*fakeHandle{
		ProductID1: want,
		ProductID2: {},
	}}

	dev, err := Locate(opener)
	require.NoError(t, err)
	assert.Same(t, want, dev)

	// Probe order is fixed: 0x0044 before 0x004e; 0x0051 is never
	// reached once a device is found.
	assert.Equal(t, []uint16{ProductID0, ProductID1}, opener.probes)
}

func TestLocateUnsupportedRevision(t *testing.T) {
	unsupported := &fakeHandle{}
	opener := &fakeOpener{attached: map[uint16]*fakeHandle{
		ProductIDUnsupported: unsupported,
	}}

	dev, err := Locate(opener)
	assert.Nil(t, dev)
	require.ErrorIs(t, err, ErrUnsupportedRevision)

	// The unsupported handle is not kept open.
	assert.Equal(t, 1, unsupported.closed)
}

func TestLocateNothingAttached(t *testing.T) {
	opener := &fakeOpener{}

	dev, err := Locate(opener)
	assert.Nil(t, dev)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.NotErrorIs(t, err, ErrUnsupportedRevision)
}

func TestClaimDistinguishesFailures(t *testing.T) {
	t.Run("configuration", func(t *testing.T) {
		dev := &fakeHandle{configErr: errors.New("busy")}
		err := Claim(dev)
		require.ErrorIs(t, err, ErrSetConfiguration)
		assert.NotErrorIs(t, err, ErrClaimInterface)
	})

	t.Run("interface", func(t *testing.T) {
		dev := &fakeHandle{claimErr: errors.New("busy")}
		err := Claim(dev)
		require.ErrorIs(t, err, ErrClaimInterface)
		assert.True(t, dev.configured)
	})

	t.Run("success", func(t *testing.T) {
		dev := &fakeHandle{}
		require.NoError(t, Claim(dev))
		assert.True(t, dev.configured)
		assert.True(t, dev.claimed)
	})
}
