// Package libusb is the gousb-backed implementation of the usb.Device and
// usb.Opener contracts. It is the only package that links against libusb,
// so everything above it stays testable without hardware.
package libusb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/gchd-dev/gchd/internal/usb"
)

// Backend owns the libusb context. Close it during teardown, after every
// device handle has been closed.
type Backend struct {
	ctx         *gousb.Context
	readTimeout time.Duration
}

// NewBackend initializes the libusb context. readTimeout bounds a single
// bulk read; zero disables the deadline.
func NewBackend(readTimeout time.Duration) *Backend {
	return &Backend{
		ctx:         gousb.NewContext(),
		readTimeout: readTimeout,
	}
}

// Open opens the first attached device matching vid:pid. A nil device with
// a nil error means nothing matched.
func (b *Backend) Open(vid, pid uint16) (usb.Device, error) {
	dev, err := b.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, nil
	}
	return &device{dev: dev, readTimeout: b.readTimeout}, nil
}

// Close shuts down the libusb context
func (b *Backend) Close() error {
	return b.ctx.Close()
}

// device adapts a gousb handle to the usb.Device contract
type device struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	readTimeout time.Duration
}

func (d *device) SetConfiguration(config int) error {
	// libusb cannot activate a configuration while a kernel driver holds
	// the interface; auto-detach covers the detach step.
	if err := d.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("set auto detach: %w", err)
	}

	cfg, err := d.dev.Config(config)
	if err != nil {
		return err
	}
	d.cfg = cfg
	return nil
}

func (d *device) ClaimInterface(iface int) error {
	if d.cfg == nil {
		return errors.New("no active configuration")
	}

	intf, err := d.cfg.Interface(iface, 0)
	if err != nil {
		return err
	}

	in, err := intf.InEndpoint(usb.StreamEndpoint & 0x0f)
	if err != nil {
		intf.Close()
		return fmt.Errorf("streaming endpoint: %w", err)
	}

	out, err := intf.OutEndpoint(usb.CommandEndpoint)
	if err != nil {
		intf.Close()
		return fmt.Errorf("command endpoint: %w", err)
	}

	d.intf = intf
	d.in = in
	d.out = out
	return nil
}

func (d *device) ReleaseInterface(iface int) error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
		d.in = nil
		d.out = nil
	}
	if d.cfg != nil {
		err := d.cfg.Close()
		d.cfg = nil
		return err
	}
	return nil
}

func (d *device) Control(requestType, request uint8, value, index uint16, data []byte) (int, error) {
	return d.dev.Control(requestType, request, value, index, data)
}

func (d *device) BulkRead(p []byte) (int, error) {
	if d.in == nil {
		return 0, errors.New("interface not claimed")
	}

	if d.readTimeout <= 0 {
		return d.in.Read(p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.readTimeout)
	defer cancel()

	n, err := d.in.ReadContext(ctx, p)
	if err != nil && isTimeout(err) {
		return n, fmt.Errorf("%w: %v", usb.ErrTimeout, err)
	}
	return n, err
}

func (d *device) BulkWrite(p []byte) (int, error) {
	if d.out == nil {
		return 0, errors.New("interface not claimed")
	}
	return d.out.Write(p)
}

func (d *device) Close() error {
	return d.dev.Close()
}

// isTimeout folds the two shapes a deadline can take (libusb's own
// timeout status and the context deadline) into one answer
func isTimeout(err error) bool {
	return errors.Is(err, gousb.TransferTimedOut) ||
		errors.Is(err, context.DeadlineExceeded)
}
