package models

import (
	"time"

	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// Ride is the durable lifecycle row. Dispatch and Acceptance mutate
// status; the external caller that owns ride creation (out of scope
// here) produces the initial PENDING row via Create.
type Ride struct {
	ID          uuid.UUID
	PassengerID uuid.UUID

	Pickup      Location
	Destination Location

	VehicleType types.VehicleType
	TotalFare   float64
	Currency    string

	PassengerNote  *string
	PickupPhotoURL *string

	Status   types.RideStatus
	DriverID *uuid.UUID

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time

	CancellationReason *types.CancellationReason
	CancelledBy        *uuid.UUID
}

// IsPending reports whether the ride is still eligible for dispatch.
func (r Ride) IsPending() bool { return r.Status == types.RideStatusPending }

// IsCancellable reports whether a cancellation may still be requested.
func (r Ride) IsCancellable() bool {
	return r.Status == types.RideStatusPending || r.Status == types.RideStatusAccepted
}

// RideSnapshot is the response shape returned to the winning driver on
// accept, and used to build the rider's ride_accepted payload.
type RideSnapshot struct {
	Ride           Ride
	DriverName     string
	DriverLocation *DriverLocation
}

// RideStatusView is the polling response shape for GET /rides/:id/status.
type RideStatusView struct {
	ID             uuid.UUID          `json:"id"`
	Status         types.RideStatus   `json:"status"`
	DriverName     *string            `json:"driverName,omitempty"`
	DriverLocation *DriverLocation    `json:"driverLocation,omitempty"`
}

// RideOffer is the payload published to driver:private:<userId> as
// new_ride_request. It is computed once per dispatch and reused for
// every round/candidate.
type RideOffer struct {
	RideID         uuid.UUID         `json:"rideId"`
	PickupAddress  string            `json:"pickupAddress"`
	PickupLat      float64           `json:"pickupLat"`
	PickupLng      float64           `json:"pickupLng"`
	DropoffAddress string            `json:"dropoffAddress"`
	DropoffLat     float64           `json:"dropoffLat"`
	DropoffLng     float64           `json:"dropoffLng"`
	EstimatedFare  float64           `json:"estimatedFare"`
	Currency       string            `json:"currency"`
	VehicleType    types.VehicleType `json:"vehicleType"`
	PassengerNote  *string           `json:"passengerNote"`
	PickupPhotoURL *string           `json:"pickupPhotoUrl"`
}

// NewRideOffer builds the offer payload from a ride row, once, at
// dispatch start.
func NewRideOffer(r Ride) RideOffer {
	return RideOffer{
		RideID:         r.ID,
		PickupAddress:  r.Pickup.Address,
		PickupLat:      r.Pickup.Latitude,
		PickupLng:      r.Pickup.Longitude,
		DropoffAddress: r.Destination.Address,
		DropoffLat:     r.Destination.Latitude,
		DropoffLng:     r.Destination.Longitude,
		EstimatedFare:  r.TotalFare,
		Currency:       r.Currency,
		VehicleType:    r.VehicleType,
		PassengerNote:  r.PassengerNote,
		PickupPhotoURL: r.PickupPhotoURL,
	}
}
