package usb

import "errors"

// ErrTimeout is returned by BulkRead when a transfer deadline expires
// before the device produces data. Backends map their native timeout
// errors onto it so callers can classify without knowing the transport.
var ErrTimeout = errors.New("transfer timed out")
