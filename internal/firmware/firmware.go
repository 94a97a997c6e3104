// Package firmware verifies that the Fujitsu MB86H57/H58 encoder firmware
// blobs the device loads during bring-up are installed. The device is never
// touched unless both are present.
package firmware

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// IdleBlob is the encoder idle-state firmware image
	IdleBlob = "mb86h57_h58_idle.bin"

	// EncodeBlob is the encoder H.264 firmware image
	EncodeBlob = "mb86h57_h58_enc_h.bin"
)

// ErrMissing indicates one or more firmware blobs were not found
var ErrMissing = errors.New("firmware files missing")

// Check reports whether both firmware blobs exist under dir. The returned
// error wraps ErrMissing and names the first missing file.
func Check(dir string) error {
	for _, name := range []string{IdleBlob, EncodeBlob} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrMissing, path)
		}
	}
	return nil
}
