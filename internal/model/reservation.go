package model

import "time"

// Reservation status values. Transitions are one-directional: a PENDING
// reservation can be confirmed or cancelled, and RELEASED is terminal.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
	ReservationReleased  = "RELEASED"
)

// Reservation records one accepted reserve-room step.
//
// Fields:
//  ReservationID – primary key, assigned by the hotel service.
//  HotelID       – hotel being booked.
//  RoomType      – room category within the hotel.
//  CheckIn       – first night, inclusive, as YYYY-MM-DD.
//  CheckOut      – departure date, exclusive, as YYYY-MM-DD.
//  GuestName     – guest the reservation is held for.
//  RoomPrice     – price quoted at reservation time.
//  Status        – one of the reservation status values above.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
//  Version       – optimistic concurrency token.
type Reservation struct {
	ReservationID string    // reservations.reservation_id
	HotelID       int64     // reservations.hotel_id
	RoomType      string    // reservations.room_type
	CheckIn       string    // reservations.check_in
	CheckOut      string    // reservations.check_out
	GuestName     string    // reservations.guest_name
	RoomPrice     float64   // reservations.room_price
	Status        string    // reservations.status
	CreatedAt     time.Time // reservations.created_at
	UpdatedAt     time.Time // reservations.updated_at
	Version       int64     // reservations.version
}

// RoomNight is the per-night occupancy row backing the exclusivity
// invariant: a UNIQUE constraint on (hotel_id, room_type, night) makes two
// overlapping non-released reservations impossible even under concurrent
// inserts, because exactly one of the conflicting transactions commits.
type RoomNight struct {
	ID            int64  // room_nights.id
	HotelID       int64  // room_nights.hotel_id
	RoomType      string // room_nights.room_type
	Night         string // room_nights.night (YYYY-MM-DD)
	ReservationID string // room_nights.reservation_id
}
