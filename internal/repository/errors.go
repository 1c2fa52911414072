// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// participant services to distinguish between different failure scenarios.
// For example, ErrNightTaken indicates that the per-night uniqueness
// constraint rejected a reservation, while ErrVersionConflict signals
// that a version-checked update lost a race with a concurrent writer.
package repository

import "errors"

// ErrNotFound is returned when the requested saga, reservation or
// authorization row does not exist. Services translate this into a
// not-found business result, never a crash.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when an UPDATE guarded by an optimistic
// version check matched no rows. The caller reports it as a
// concurrent-modification failure instead of silently overwriting.
var ErrVersionConflict = errors.New("version conflict")

// ErrNightTaken is returned when inserting room_nights rows violates the
// UNIQUE (hotel_id, room_type, night) constraint, i.e. an overlapping
// reservation already holds at least one of the requested nights.
var ErrNightTaken = errors.New("room night already taken")
