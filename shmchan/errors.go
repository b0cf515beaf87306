package shmchan

import "errors"

const Namespace = "shmchan"

var (
	// ErrCapacityTooSmall is returned by OpenRegion/NewRing when the
	// requested capacity cannot fit any usable payload.
	ErrCapacityTooSmall = errors.New(Namespace + ": capacity must be greater than zero")

	// ErrRequestTooLarge is returned when a single Write/Read (or
	// PeekAt/FillAt) request exceeds the ring's total capacity — it could
	// never be satisfied even with an empty ring.
	ErrRequestTooLarge = errors.New(Namespace + ": request exceeds ring capacity")

	// ErrClosed is returned by Channel operations performed after Close.
	ErrClosed = errors.New(Namespace + ": channel closed")
)
