// Package domain defines domain-level errors for the analysis feature.
package domain

import "errors"

var (
	// ErrIncompleteBundle is returned when a bundle is requested before all
	// four required timeframes have been analyzed. It is recoverable: the
	// caller waits for the remaining analyses and retries.
	ErrIncompleteBundle = errors.New("bundle is incomplete: not all timeframes analyzed")

	// ErrCycleSealed is returned when an analysis is submitted for a capture
	// whose bundle has already been delivered. A re-analysis must start a new
	// capture cycle with a fresh capture ID.
	ErrCycleSealed = errors.New("capture cycle already sealed")

	// ErrUnknownTimeframe is returned when an analysis carries a timeframe
	// outside the required set.
	ErrUnknownTimeframe = errors.New("unknown timeframe")
)
