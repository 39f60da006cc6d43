package sim

import "errors"

// Sentinel errors returned by Simulator methods. Graph lookups that fail
// mid-episode surface connectivity.ErrUnknownViewpoint; loads that fail
// surface connectivity.ErrIOFailure.
var (
	// ErrInvalidState is returned when a method is called out of lifecycle order.
	ErrInvalidState = errors.New("sim: invalid state")

	// ErrInvalidViewpoint is returned when an episode is started at an
	// unknown or excluded viewpoint.
	ErrInvalidViewpoint = errors.New("sim: invalid viewpoint")

	// ErrIndexOutOfRange is returned when an action index is outside the
	// current navigable set.
	ErrIndexOutOfRange = errors.New("sim: action index out of range")

	// ErrInvalidArgument is returned for a NaN or infinite angle.
	ErrInvalidArgument = errors.New("sim: invalid argument")

	// ErrInvalidConfig is returned when a camera setting is rejected.
	ErrInvalidConfig = errors.New("sim: invalid camera config")
)
