package acceptance

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any)            {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)             {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)             {}
func (nopLogger) Error(ctx context.Context, msg string, err error, args ...any) {}
func (nopLogger) GetSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRides struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride
}

func newFakeRides() *fakeRides { return &fakeRides{rides: make(map[uuid.UUID]*models.Ride)} }

func (f *fakeRides) put(r models.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := r
	f.rides[r.ID] = &cp
}

func (f *fakeRides) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRides) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	f.put(*ride)
	return ride, nil
}

// AcceptConditional is the atomic race boundary under test: it must
// only ever flip one caller's result to true for a given ride.
func (f *fakeRides) AcceptConditional(ctx context.Context, rideID, driverID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok || r.Status != types.RideStatusPending || r.DriverID != nil {
		return false, nil
	}
	r.Status = types.RideStatusAccepted
	r.DriverID = &driverID
	r.AcceptedAt = &now
	return true, nil
}

func (f *fakeRides) MarkCancelled(ctx context.Context, rideID uuid.UUID, reason types.CancellationReason, cancelledBy uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return types.ErrRideNotFound
	}
	r.Status = types.RideStatusCancelled
	r.CancellationReason = &reason
	r.CancelledBy = &cancelledBy
	r.CancelledAt = &now
	return nil
}

func (f *fakeRides) MarkExhausted(ctx context.Context, rideID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[rideID]
	if !ok {
		return false, types.ErrRideNotFound
	}
	if r.Status != types.RideStatusPending {
		return false, nil
	}
	r.Status = types.RideStatusCancelled
	return true, nil
}

type fakeDrivers struct {
	mu     sync.Mutex
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
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := d
	f.byUser[d.UserID] = &cp
	f.byID[d.ID] = &cp
}

func (f *fakeDrivers) Get(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byUser[userID]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDrivers) GetByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[driverID]
	if !ok {
		return nil, types.ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDrivers) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byUser[userID]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.Status = target
	if byID, ok := f.byID[d.ID]; ok {
		byID.Status = target
	}
	return nil
}

func (f *fakeDrivers) UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := loc
	f.locs[userID] = &cp
	return nil
}

func (f *fakeDrivers) GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locs[userID]
	if !ok {
		return nil, types.ErrLocationNotFound
	}
	return loc, nil
}

type fakeGeo struct{}

func (fakeGeo) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error { return nil }
func (fakeGeo) Remove(ctx context.Context, userID uuid.UUID) error                   { return nil }
func (fakeGeo) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	return nil, nil
}

// fakeTx satisfies trm.TxManager by running the closure directly; the
// fake stores mutate maps, so there is nothing to commit or roll back.
type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
func (fakeTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type publishCall struct {
	channel string
	event   types.EventName
	payload any
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

func newFakePublisher() *fakePublisher { return &fakePublisher{} }

func (f *fakePublisher) Publish(ctx context.Context, channel string, event types.EventName, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{channel: channel, event: event, payload: payload})
	return nil
}

func (f *fakePublisher) snapshot() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func mustUUID() uuid.UUID {
	id, err := uuid.New()
	if err != nil {
		panic(err)
	}
	return id
}
