package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// DriverRepo implements ports.DriverStore against the drivers and
// driver_locations tables.
type DriverRepo struct {
	db *pgxpool.Pool
}

func NewDriverRepo(db *pgxpool.Pool) *DriverRepo {
	return &DriverRepo{db: db}
}

func (r *DriverRepo) scanDriver(row pgx.Row) (*models.Driver, error) {
	d := &models.Driver{}
	err := row.Scan(
		&d.ID, &d.UserID, &d.Approval, &d.Status,
		&d.VehicleType, &d.FuelType, &d.Capacity, &d.PetFriendly, &d.Name,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan driver: %w", err)
	}
	return d, nil
}

const selectDriver = `
SELECT id, user_id, approval_status, availability,
	vehicle_type, fuel_type, capacity, pet_friendly, name
FROM drivers WHERE %s = $1`

func (r *DriverRepo) Get(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	q := TxorDB(ctx, r.db)
	row := q.QueryRow(ctx, fmt.Sprintf(selectDriver, "user_id"), userID)
	return r.scanDriver(row)
}

func (r *DriverRepo) GetByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	q := TxorDB(ctx, r.db)
	row := q.QueryRow(ctx, fmt.Sprintf(selectDriver, "id"), driverID)
	return r.scanDriver(row)
}

// SetAvailability writes the new availability. A transition to ONLINE
// carries an extra predicate on approval_status in the same statement,
// so it can never land after a concurrent approval revocation: the
// UPDATE and the revocation race for the row version, and whichever
// commits second sees the other's write and loses.
func (r *DriverRepo) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	q := TxorDB(ctx, r.db)

	query := `UPDATE drivers SET availability = $1 WHERE user_id = $2`
	args := []any{target, userID}
	if target == types.AvailabilityOnline {
		query += ` AND approval_status = $3`
		args = append(args, types.ApprovalApproved)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, userID); err != nil {
			return err
		}
		return types.ErrDriverNotApproved
	}
	return nil
}

func (r *DriverRepo) UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error {
	q := TxorDB(ctx, r.db)

	const query = `
INSERT INTO driver_locations (user_id, latitude, longitude, heading, speed, accuracy, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
	latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
	heading = EXCLUDED.heading, speed = EXCLUDED.speed,
	accuracy = EXCLUDED.accuracy, updated_at = EXCLUDED.updated_at`

	_, err := q.Exec(ctx, query, userID, loc.Latitude, loc.Longitude, loc.Heading, loc.Speed, loc.Accuracy, loc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

func (r *DriverRepo) GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error) {
	q := TxorDB(ctx, r.db)

	const query = `SELECT latitude, longitude, heading, speed, accuracy, updated_at FROM driver_locations WHERE user_id = $1`

	loc := &models.DriverLocation{}
	err := q.QueryRow(ctx, query, userID).Scan(&loc.Latitude, &loc.Longitude, &loc.Heading, &loc.Speed, &loc.Accuracy, &loc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}
