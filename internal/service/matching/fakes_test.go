package matching

import (
	"context"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// fakeGeo is a hand-written ports.GeoIndex: a fixed list of points
// returned in the order given, filtered by radius, mirroring the real
// in-memory index without the haversine math (tests supply distances
// directly).
type fakeGeo struct {
	hits []ports.GeoHit
}

func (f *fakeGeo) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error { return nil }
func (f *fakeGeo) Remove(ctx context.Context, userID uuid.UUID) error                   { return nil }

func (f *fakeGeo) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	out := make([]ports.GeoHit, 0, len(f.hits))
	for _, h := range f.hits {
		if h.DistanceMeters > radiusMeters {
			continue
		}
		out = append(out, h)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeDrivers is a hand-written ports.DriverStore backed by a plain map.
type fakeDrivers struct {
	byUser map[uuid.UUID]*models.Driver
	byID   map[uuid.UUID]*models.Driver
	locs   map[uuid.UUID]*models.DriverLocation
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{
		byUser: make(map[uuid.UUID]*models.Driver),
		byID:   make(map[uuid.UUID]*models.Driver),
		locs:   make(map[uuid.UUID]*models.DriverLocation),
	}
}

func (f *fakeDrivers) put(d models.Driver) {
	cp := d
	f.byUser[d.UserID] = &cp
	f.byID[d.ID] = &cp
}

func (f *fakeDrivers) Get(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	d, ok := f.byUser[userID]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return d, nil
}

func (f *fakeDrivers) GetByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	d, ok := f.byID[driverID]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	return d, nil
}

func (f *fakeDrivers) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	d, ok := f.byUser[userID]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.Status = target
	return nil
}

func (f *fakeDrivers) UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error {
	cp := loc
	f.locs[userID] = &cp
	return nil
}

func (f *fakeDrivers) GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error) {
	loc, ok := f.locs[userID]
	if !ok {
		return nil, types.ErrLocationNotFound
	}
	return loc, nil
}

func mustUUID() uuid.UUID {
	id, err := uuid.New()
	if err != nil {
		panic(err)
	}
	return id
}
