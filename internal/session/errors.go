package session

import "errors"

var (
	// ErrLayoutUnknown means the rendered image has not been measured; the touch is ignored.
	ErrLayoutUnknown = errors.New("image layout not measured yet")
	// ErrInvalidAsset means the asset has no id.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrBusy is returned when a point is added while the asset is generating.
	ErrBusy = errors.New("generation in progress")
	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("session closed")
)

// IsLayoutUnknown reports whether err indicates an unmeasured layout.
func IsLayoutUnknown(err error) bool { return errors.Is(err, ErrLayoutUnknown) }

// errInvalidResult is recorded when a 2xx segmentation carries no artifact.
var errInvalidResult = errors.New("segment response missing segUrl/maskUrl")
