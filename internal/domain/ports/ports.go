// Package ports holds the narrow interfaces the dispatch core depends
// on but does not implement: the durable store, the spatial index, and
// the outbound event publisher. Concrete adapters live under
// internal/adapter/*; the core only ever imports this package.
package ports

import (
	"context"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// EventPublisher is the narrow outbound interface the core uses to push
// events to rider and driver channels. Implementations return publish
// failures; every caller logs them and carries on, so a failed publish
// never aborts a dispatch round.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event types.EventName, payload any) error
}

// RideStore is the narrow interface abstracting the durable ride record
// the core reads and mutates.
type RideStore interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)

	// Create persists a new PENDING ride. Callers set every field except
	// ID, which is assigned here; the row is always stored as PENDING.
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)

	// AcceptConditional performs the single atomic conditional update
	// that is the acceptance race boundary: it succeeds
	// only where id=rideID AND status='PENDING' AND driver_id IS NULL.
	// Returns false (no error) when zero rows were touched — the caller
	// turns that into Conflict, never retries with a read-then-write.
	AcceptConditional(ctx context.Context, rideID, driverID uuid.UUID, now time.Time) (bool, error)

	MarkCancelled(ctx context.Context, rideID uuid.UUID, reason types.CancellationReason, cancelledBy uuid.UUID, now time.Time) error

	// MarkExhausted is the exhaustion-procedure variant of cancellation:
	// it only touches a still-PENDING row, returning false if the ride
	// already moved on (accepted or externally cancelled).
	MarkExhausted(ctx context.Context, rideID uuid.UUID, now time.Time) (bool, error)
}

// DriverStore is the narrow interface abstracting the durable driver
// and location records.
type DriverStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Driver, error)
	GetByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)

	// SetAvailability writes the driver's availability. A transition to
	// ONLINE must carry a conditional predicate on the row's current
	// approval status (or an equivalent per-driver serialization) so
	// that a concurrent approval revocation can never be straddled by an
	// ONLINE write: implementations return types.ErrDriverNotApproved
	// when that predicate rejects the update for an otherwise-existing
	// driver.
	SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error

	UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error
	GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error)
}

// GeoIndex abstracts the spatial index backing the Matching Service's
// nearest-neighbour query. Implementations: a Redis GEO-command index
// for production, an in-memory haversine scan for tests and for
// Redis-less runs.
type GeoIndex interface {
	// Upsert indexes (or re-indexes) a driver at the given point. Must
	// be idempotent and visible to subsequent Search calls without
	// relying on external caches.
	Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error

	// Remove drops a driver from the index (e.g. on going OFFLINE).
	Remove(ctx context.Context, userID uuid.UUID) error

	// Search returns candidate user ids within radiusMeters of
	// (lat,lng), nearest first, truncated to limit. It does not apply
	// the business filters (approval/availability/vehicle/etc) —
	// those are the Matching Service's job once it has resolved each
	// candidate's Driver row.
	Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]GeoHit, error)
}

// GeoHit is one spatial-search result: a driver id plus its resolved
// position and distance from the query point.
type GeoHit struct {
	UserID         uuid.UUID
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
}
