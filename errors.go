package histogo

import (
	"errors"

	"github.com/hupe1980/histogo/registry"
)

var (
	// ErrClosed is returned for operations on a closed service.
	ErrClosed = errors.New("service closed")

	// ErrBadState is returned when a persisted storage state cannot be
	// applied to the registered definition, for example after a histogram
	// changed shape between sessions.
	ErrBadState = errors.New("malformed storage state")
)

// Registration and rendering errors surface the registry sentinels directly
// so callers can match them with errors.Is without importing the registry
// package.
var (
	// ErrDuplicateName is returned when a histogram name is already taken.
	ErrDuplicateName = registry.ErrDuplicateName

	// ErrEmptyName is returned when a histogram is created without a name.
	ErrEmptyName = registry.ErrEmptyName

	// ErrUnknownFormat is returned when a payload is requested in a format
	// the storages do not render.
	ErrUnknownFormat = registry.ErrUnknownFormat
)
