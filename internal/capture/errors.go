package capture

import "errors"

var (
	// ErrNotConnected is returned by operations that need a live X
	// connection before Start (or a successful on-demand open) provided one.
	ErrNotConnected = errors.New("not connected to X server")

	// ErrWindowUnset is returned by operations that need a target window
	// id before one has been configured.
	ErrWindowUnset = errors.New("window id not set")

	// ErrFlow is returned by Produce when a pull cannot deliver a frame
	// and no fallback exists.
	ErrFlow = errors.New("frame production failed")
)
