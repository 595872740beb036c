package models

import "github.com/ridecore/dispatch/pkg/uuid"

// Event channel name helpers. Kept as functions rather than
// string-templated ad hoc in callers so the wire format lives in one
// place.
func RiderChannel(passengerID uuid.UUID) string {
	return "rider:" + passengerID.String()
}

func DriverPrivateChannel(userID uuid.UUID) string {
	return "driver:private:" + userID.String()
}

// Payload shapes published through the Event Publisher Port. Field
// names are part of the wire contract since these are serialized verbatim.

type RideAcceptedPayload struct {
	RideID         uuid.UUID       `json:"rideId"`
	DriverID       uuid.UUID       `json:"driverId"`
	DriverName     string          `json:"driverName"`
	DriverLocation *DriverLocation `json:"driverLocation"`
}

type RideCancelledByDriverPayload struct {
	RideID uuid.UUID `json:"rideId"`
}

type NoDriverFoundPayload struct {
	RideID uuid.UUID `json:"rideId"`
}

type RideCancelledPayload struct {
	RideID uuid.UUID `json:"rideId"`
}

// NewRideRequestPayload is RideOffer,
// reused directly; see RideOffer in ride.go.
type NewRideRequestPayload = RideOffer
