package models

import (
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// Driver is the authoritative approval/availability/vehicle record the
// Driver State Service owns.
type Driver struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Approval types.ApprovalStatus
	Status   types.Availability

	VehicleType types.VehicleType
	FuelType    types.FuelType
	Capacity    int
	PetFriendly bool

	Name string
}

// CanGoOnline reports whether this driver is permitted to transition out
// of OFFLINE. Only APPROVED drivers ever may.
func (d Driver) CanGoOnline() bool {
	return d.Approval == types.ApprovalApproved
}

// NearbyDriver is a single row of a matching query result: a driver plus
// its distance from the query point, already filtered and ordered by
// the caller.
type NearbyDriver struct {
	DriverID       uuid.UUID `json:"driver_id"`
	UserID         uuid.UUID `json:"user_id"`
	DriverName     string    `json:"driver_name"`
	Latitude       float64   `json:"lat"`
	Longitude      float64   `json:"lng"`
	Heading        *float64  `json:"heading,omitempty"`
	DistanceMeters float64   `json:"distance_meters"`
}

// MatchFilters narrows a matching query beyond radius/limit. A zero
// value (or "ANY") on VehicleType/FuelType means "no constraint". The
// Matching Service applies MatchFilters.Matches to each resolved driver
// after the geo index search; neither geo index filters on its own.
type MatchFilters struct {
	VehicleType      types.VehicleType
	FuelType         types.FuelType
	PetFriendly      bool
	ExtraPassengers  bool
}

// Matches applies every set filter conjunctively.
func (f MatchFilters) Matches(d Driver) bool {
	if f.VehicleType != "" && f.VehicleType != types.VehicleAny && f.VehicleType != d.VehicleType {
		return false
	}
	if f.FuelType != "" && f.FuelType != types.FuelAny && f.FuelType != d.FuelType {
		return false
	}
	if f.PetFriendly && !d.PetFriendly {
		return false
	}
	if f.ExtraPassengers && d.Capacity < 5 {
		return false
	}
	return true
}

// DriverStatusSnapshot is the response shape for getStatus/"GET
// /dispatch/status".
type DriverStatusSnapshot struct {
	DriverID       uuid.UUID             `json:"driverId"`
	Availability   types.Availability    `json:"status"`
	ApprovalStatus types.ApprovalStatus  `json:"approvalStatus"`
	Location       *DriverLocation       `json:"location,omitempty"`
}
