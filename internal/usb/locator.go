package usb

import (
	"errors"
	"fmt"

	"github.com/gchd-dev/gchd/internal/logger"
)

var (
	// ErrDeviceNotFound means no Game Capture HD is attached
	ErrDeviceNotFound = errors.New("unable to find device")

	// ErrUnsupportedRevision means a device was found but its hardware
	// revision is not supported
	ErrUnsupportedRevision = errors.New("this revision of the Game Capture HD is currently not supported")

	// ErrSetConfiguration means the USB configuration could not be activated
	ErrSetConfiguration = errors.New("could not activate configuration")

	// ErrClaimInterface means the vendor interface could not be claimed
	ErrClaimInterface = errors.New("failed to claim interface")
)

// supportedProductIDs is the probe order. Earlier revisions are more
// common, so they are tried first.
var supportedProductIDs = []uint16{ProductID0, ProductID1, ProductID2}

// Locate opens the first attached Game Capture HD, probing the supported
// product IDs in priority order. A device matching only the unsupported
// revision yields ErrUnsupportedRevision; nothing matching yields
// ErrDeviceNotFound. On error no handle is held.
func Locate(opener Opener) (Device, error) {
	log := logger.WithComponent("locator")

	for _, pid := range supportedProductIDs {
		dev, err := opener.Open(VendorID, pid)
		if err != nil {
			return nil, fmt.Errorf("open device %04x:%04x: %w", VendorID, pid, err)
		}
		if dev != nil {
			log.Info().
				Str("product_id", fmt.Sprintf("%04x", pid)).
				Msg("Found Game Capture HD")
			return dev, nil
		}
	}

	dev, err := opener.Open(VendorID, ProductIDUnsupported)
	if err != nil {
		return nil, fmt.Errorf("open device %04x:%04x: %w", VendorID, ProductIDUnsupported, err)
	}
	if dev != nil {
		// Do not keep a handle we cannot drive.
		if cerr := dev.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close unsupported device")
		}
		return nil, ErrUnsupportedRevision
	}

	return nil, ErrDeviceNotFound
}

// Claim brings an opened device to the point where vendor transfers are
// legal: activate configuration 1, then claim interface 0. The two steps
// fail distinctly. On failure the handle stays open and unclaimed; the
// caller owns teardown.
func Claim(dev Device) error {
	if err := dev.SetConfiguration(ConfigurationNumber); err != nil {
		return fmt.Errorf("%w: %v", ErrSetConfiguration, err)
	}

	if err := dev.ClaimInterface(InterfaceNumber); err != nil {
		return fmt.Errorf("%w: %v", ErrClaimInterface, err)
	}

	return nil
}
