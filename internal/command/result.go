package command

// Stable machine-readable error codes returned by the participants. The
// orchestrator treats every code uniformly as "step failed"; the codes
// exist so operators and downstream tooling can tell failures apart.
const (
	CodeRoomNotAvailable      = "ROOM_NOT_AVAILABLE"
	CodeReservationNotFound   = "RESERVATION_NOT_FOUND"
	CodeInvalidCard           = "INVALID_CARD"
	CodeInsufficientFunds     = "INSUFFICIENT_FUNDS"
	CodeAuthorizationNotFound = "AUTHORIZATION_NOT_FOUND"
	CodeInvalidStatus         = "INVALID_STATUS"
	CodeOptimisticLockFailure = "OPTIMISTIC_LOCK_FAILURE"
	CodeHotelServiceError     = "HOTEL_SERVICE_ERROR"
	CodePaymentServiceError   = "PAYMENT_SERVICE_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Result is the envelope every participant operation returns. Business
// failures travel inside the envelope with Success=false; only transport
// problems surface as Go errors on the client side.
type Result[T any] struct {
	Success      bool   `json:"success"`
	Data         *T     `json:"data"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
}

// Void is the payload type for operations that return no data.
type Void struct{}

// OK wraps a successful payload.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data}
}

// Done is a successful result with no payload.
func Done() Result[Void] {
	return OK(Void{})
}

// Fail builds a business-failure result with a human message and a stable
// error code.
func Fail[T any](message, code string) Result[T] {
	return Result[T]{Success: false, ErrorMessage: message, ErrorCode: code}
}

// ReservationData is the reservation reference returned by the hotel
// service on a successful reserve.
type ReservationData struct {
	ReservationID string  `json:"reservationId"`
	HotelID       int64   `json:"hotelId"`
	RoomType      string  `json:"roomType"`
	CheckIn       string  `json:"checkIn"`
	CheckOut      string  `json:"checkOut"`
	GuestName     string  `json:"guestName"`
	RoomPrice     float64 `json:"roomPrice"`
	Status        string  `json:"status"`
	Version       int64   `json:"version"`
}

// AuthorizationData is the payment reference returned by the payment
// service on a successful authorize. CardNumber is always masked.
type AuthorizationData struct {
	AuthorizationID string  `json:"authorizationId"`
	CardNumber      string  `json:"cardNumber"`
	CardHolderName  string  `json:"cardHolderName"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	Version         int64   `json:"version"`
}
