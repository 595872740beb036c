package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	pgdb "github.com/ridecore/dispatch/pkg/postgres"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// RideRepo implements ports.RideStore against the rides table. The
// acceptance and exhaustion transitions go through a single-row
// conditional UPDATE (AcceptConditional, MarkExhausted) rather than
// read-then-write, so concurrent callers race at the database, not in
// Go. MarkCancelled updates by id alone, with no status predicate.
type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	id, err := uuid.New()
	if err != nil {
		return nil, fmt.Errorf("generate ride id: %w", err)
	}
	ride.ID = id

	const query = `
INSERT INTO rides (
	id, passenger_id,
	pickup_address, pickup_lat, pickup_lng,
	dest_address, dest_lat, dest_lng,
	vehicle_type, total_fare, currency, passenger_note, pickup_photo_url,
	status, created_at
) VALUES (
	$1, $2,
	$3, $4, $5,
	$6, $7, $8,
	$9, $10, $11, $12, $13,
	$14, $15
)`

	_, err = q.Exec(ctx, query,
		ride.ID, ride.PassengerID,
		ride.Pickup.Address, ride.Pickup.Latitude, ride.Pickup.Longitude,
		ride.Destination.Address, ride.Destination.Latitude, ride.Destination.Longitude,
		ride.VehicleType, ride.TotalFare, ride.Currency, ride.PassengerNote, ride.PickupPhotoURL,
		types.RideStatusPending, ride.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ride: %w", err)
	}

	return ride, nil
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	const query = `
SELECT id, passenger_id,
	pickup_address, pickup_lat, pickup_lng,
	dest_address, dest_lat, dest_lng,
	vehicle_type, total_fare, currency, passenger_note, pickup_photo_url,
	status, driver_id,
	created_at, accepted_at, cancelled_at, completed_at,
	cancellation_reason, cancelled_by
FROM rides WHERE id = $1`

	ride := &models.Ride{}
	err := q.QueryRow(ctx, query, rideID).Scan(
		&ride.ID, &ride.PassengerID,
		&ride.Pickup.Address, &ride.Pickup.Latitude, &ride.Pickup.Longitude,
		&ride.Destination.Address, &ride.Destination.Latitude, &ride.Destination.Longitude,
		&ride.VehicleType, &ride.TotalFare, &ride.Currency, &ride.PassengerNote, &ride.PickupPhotoURL,
		&ride.Status, &ride.DriverID,
		&ride.CreatedAt, &ride.AcceptedAt, &ride.CancelledAt, &ride.CompletedAt,
		&ride.CancellationReason, &ride.CancelledBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride: %w", err)
	}
	return ride, nil
}

// AcceptConditional is the acceptance race boundary: it
// only touches a row that is still PENDING with no assigned driver.
func (r *RideRepo) AcceptConditional(ctx context.Context, rideID, driverID uuid.UUID, now time.Time) (bool, error) {
	q := TxorDB(ctx, r.db)

	const query = `
UPDATE rides SET status = $1, driver_id = $2, accepted_at = $3
WHERE id = $4 AND status = $5 AND driver_id IS NULL`

	tag, err := q.Exec(ctx, query, types.RideStatusAccepted, driverID, now, rideID, types.RideStatusPending)
	if err != nil {
		// A driver row deleted between the caller's lookup and this
		// write trips the driver_id foreign key; surface that as the
		// domain's not-found, not an opaque pg error.
		if pgdb.IsForeignKeyViolation(err) {
			return false, types.ErrDriverNotFound
		}
		return false, fmt.Errorf("accept conditional: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RideRepo) MarkCancelled(ctx context.Context, rideID uuid.UUID, reason types.CancellationReason, cancelledBy uuid.UUID, now time.Time) error {
	q := TxorDB(ctx, r.db)

	const query = `
UPDATE rides SET status = $1, cancellation_reason = $2, cancelled_by = $3, cancelled_at = $4
WHERE id = $5`

	tag, err := q.Exec(ctx, query, types.RideStatusCancelled, reason, cancelledBy, now, rideID)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrRideNotFound
	}
	return nil
}

// MarkExhausted is the exhaustion-procedure variant: it only succeeds
// against a row still PENDING, so a ride accepted in the same instant
// the last round fired is never clobbered.
func (r *RideRepo) MarkExhausted(ctx context.Context, rideID uuid.UUID, now time.Time) (bool, error) {
	q := TxorDB(ctx, r.db)

	const query = `
UPDATE rides SET status = $1, cancellation_reason = $2, cancelled_at = $3
WHERE id = $4 AND status = $5`

	tag, err := q.Exec(ctx, query, types.RideStatusCancelled, types.ReasonNoDriversAvailable, now, rideID, types.RideStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark exhausted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
