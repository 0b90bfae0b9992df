package domain

import "errors"

// ErrInvalidCoordinate is returned when a coordinate is non-finite or out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")
