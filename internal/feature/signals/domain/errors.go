// Package domain defines domain-level errors for the signals feature.
package domain

import "errors"

var (
	// ErrSignalNotFound is returned when no signal exists for the given ID.
	ErrSignalNotFound = errors.New("signal not found")
)
