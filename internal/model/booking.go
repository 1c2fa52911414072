package model

// BookingRequest is the client-facing booking intake payload. It is
// serialized once into the saga's request snapshot at creation time and
// never re-read from the client, so every retry of a step sees exactly the
// data the saga started with.
type BookingRequest struct {
	HotelID        int64   `json:"hotelId"`
	RoomType       string  `json:"roomType"`
	CheckIn        string  `json:"checkIn"`  // YYYY-MM-DD
	CheckOut       string  `json:"checkOut"` // YYYY-MM-DD
	GuestName      string  `json:"guestName"`
	RoomPrice      float64 `json:"roomPrice"`
	CardNumber     string  `json:"cardNumber"`
	CardHolderName string  `json:"cardHolderName"`
	ExpiryMonth    string  `json:"expiryMonth"`
	ExpiryYear     string  `json:"expiryYear"`
	CVV            string  `json:"cvv"`
}
