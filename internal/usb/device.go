// Package usb finds, claims and talks to the Game Capture HD over USB.
package usb

// Elgato Game Capture HD identifiers and topology. The device exposes a
// single configuration with a single vendor interface: bulk IN 0x81
// carries the transport stream, bulk OUT 0x02 takes encoder commands.
const (
	VendorID uint16 = 0x0fd9

	ProductID0 uint16 = 0x0044
	ProductID1 uint16 = 0x004e
	ProductID2 uint16 = 0x0051

	// ProductIDUnsupported is a later hardware revision that speaks a
	// different protocol. It is recognized so the user gets a precise
	// diagnostic instead of "not found".
	ProductIDUnsupported uint16 = 0x005d

	ConfigurationNumber = 1
	InterfaceNumber     = 0

	StreamEndpoint  = 0x81
	CommandEndpoint = 0x02
)

// Device is the handle to an opened capture device. It is the only surface
// the rest of the system talks to, so everything above the backend can run
// against a fake.
type Device interface {
	// SetConfiguration activates the given USB configuration, detaching
	// a conflicting kernel driver first if one is bound.
	SetConfiguration(config int) error

	// ClaimInterface takes exclusive ownership of the given interface
	// and prepares its endpoints for transfers.
	ClaimInterface(iface int) error

	// ReleaseInterface gives up a previously claimed interface.
	ReleaseInterface(iface int) error

	// Control performs a control transfer on endpoint 0. For
	// host-to-device requests data is the payload; for device-to-host
	// requests it receives the response.
	Control(requestType, request uint8, value, index uint16, data []byte) (int, error)

	// BulkRead reads the next chunk of transport stream data from the
	// streaming endpoint into p.
	BulkRead(p []byte) (int, error)

	// BulkWrite sends an encoder command block on the command endpoint.
	BulkWrite(p []byte) (int, error)

	// Close releases the underlying device handle.
	Close() error
}

// Opener opens a device by vendor/product ID. A nil Device with a nil
// error means no such device is attached.
type Opener interface {
	Open(vid, pid uint16) (Device, error)
}
