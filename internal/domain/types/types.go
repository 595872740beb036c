package types

// ApprovalStatus is the driver's vetting state. Only APPROVED drivers may
// go ONLINE or ON_TRIP.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "PENDING"
	ApprovalApproved  ApprovalStatus = "APPROVED"
	ApprovalRejected  ApprovalStatus = "REJECTED"
	ApprovalSuspended ApprovalStatus = "SUSPENDED"
)

// Availability is the driver's dispatch-relevant presence state.
type Availability string

const (
	AvailabilityOffline Availability = "OFFLINE"
	AvailabilityOnline  Availability = "ONLINE"
	AvailabilityOnTrip  Availability = "ON_TRIP"
)

// VehicleType classifies the vehicle a driver offers rides in.
type VehicleType string

const (
	VehicleAny      VehicleType = "ANY"
	VehicleStandard VehicleType = "STANDARD"
	VehiclePlus     VehicleType = "PLUS"
	VehicleXL       VehicleType = "XL"
)

// FuelType classifies the vehicle's fuel/powertrain.
type FuelType string

const (
	FuelAny      FuelType = "ANY"
	FuelPetrol   FuelType = "PETROL"
	FuelDiesel   FuelType = "DIESEL"
	FuelHybrid   FuelType = "HYBRID"
	FuelElectric FuelType = "ELECTRIC"
)

// RideStatus is the durable lifecycle state of a ride row.
type RideStatus string

const (
	RideStatusPending     RideStatus = "PENDING"
	RideStatusAccepted    RideStatus = "ACCEPTED"
	RideStatusInProgress  RideStatus = "IN_PROGRESS"
	RideStatusCompleted   RideStatus = "COMPLETED"
	RideStatusCancelled   RideStatus = "CANCELLED"
)

func (s RideStatus) String() string { return string(s) }

// CancelledBy records which party triggered a ride cancellation.
type CancelledBy string

const (
	CancelledByRider  CancelledBy = "RIDER"
	CancelledByDriver CancelledBy = "DRIVER"
	CancelledBySystem CancelledBy = "SYSTEM"
)

// CancellationReason is a closed set of machine-readable reasons.
type CancellationReason string

const (
	ReasonUserCancelled       CancellationReason = "USER_CANCELLED"
	ReasonDriverCancelled     CancellationReason = "DRIVER_CANCELLED"
	ReasonNoDriversAvailable  CancellationReason = "NO_DRIVERS_AVAILABLE"
)

// EntityType distinguishes the owner of a coordinate/location row.
type EntityType string

const (
	EntityDriver    EntityType = "driver"
	EntityPassenger EntityType = "passenger"
)

// PresenceAction mirrors the broker's presence message action codes.
// Only Enter and Leave are acted on; every other code is ignored.
type PresenceAction int

const (
	PresenceEnter PresenceAction = 2
	PresenceLeave PresenceAction = 3
)

// UserRole distinguishes the two bearer-token holders the dispatch core
// ever sees. Issuance lives in an identity service out of scope; this
// core only verifies and checks the role claim.
type UserRole string

const (
	RolePassenger UserRole = "passenger"
	RoleDriver    UserRole = "driver"
)
