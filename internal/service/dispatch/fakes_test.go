package dispatch

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

// nopLogger discards everything; tests assert on publisher/store state,
// not log output.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any)          {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)           {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)           {}
func (nopLogger) Error(ctx context.Context, msg string, err error, args ...any) {}
func (nopLogger) GetSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRides is a hand-written ports.RideStore over a guarded map,
// mirroring the matching package's fakeDrivers convention.
type fakeRides struct {
	mu    sync.Mutex
	rides map[uuid.UUID]*models.Ride
}

func newFakeRides() *fakeRides {
	return &fakeRides{rides: make(map[uuid.UUID]*models.Ride)}
}

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
	reason := types.ReasonNoDriversAvailable
	r.Status = types.RideStatusCancelled
	r.CancellationReason = &reason
	r.CancelledAt = &now
	return true, nil
}

// publishCall records one Publish invocation for assertions.
type publishCall struct {
	channel string
	event   types.EventName
	payload any
}

// fakePublisher is a hand-written ports.EventPublisher recording every
// call under a mutex (rounds and cancel run on background goroutines).
type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	fail  map[string]bool // channel -> force error once consulted
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{fail: make(map[string]bool)}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, event types.EventName, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{channel: channel, event: event, payload: payload})
	if f.fail[channel] {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakePublisher) snapshot() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakePublisher) countEvent(event types.EventName) int {
	n := 0
	for _, c := range f.snapshot() {
		if c.event == event {
			n++
		}
	}
	return n
}

// fakeGeoHit is one entry a fakeGeo always returns regardless of query
// point, filtered only by radius; tests supply the distance directly.
type fakeGeoHit struct {
	userID         uuid.UUID
	distanceMeters float64
}

// fakeGeo is a hand-written ports.GeoIndex returning a fixed candidate
// list, mirroring the matching package's own test fake.
type fakeGeo struct {
	hits []fakeGeoHit
}

func (f *fakeGeo) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error { return nil }
func (f *fakeGeo) Remove(ctx context.Context, userID uuid.UUID) error                   { return nil }

func (f *fakeGeo) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	out := make([]ports.GeoHit, 0, len(f.hits))
	for _, h := range f.hits {
		if h.distanceMeters > radiusMeters {
			continue
		}
		out = append(out, ports.GeoHit{UserID: h.userID, DistanceMeters: h.distanceMeters})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeDrivers is a hand-written ports.DriverStore over a plain map.
type fakeDrivers struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*models.Driver
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{byUser: make(map[uuid.UUID]*models.Driver)}
}

func (f *fakeDrivers) put(d models.Driver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := d
	f.byUser[d.UserID] = &cp
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
	for _, d := range f.byUser {
		if d.ID == driverID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, types.ErrDriverNotFound
}

func (f *fakeDrivers) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byUser[userID]
	if !ok {
		return types.ErrDriverNotFound
	}
	d.Status = target
	return nil
}

func (f *fakeDrivers) UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error {
	return nil
}

func (f *fakeDrivers) GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error) {
	return nil, types.ErrLocationNotFound
}

func mustUUID() uuid.UUID {
	id, err := uuid.New()
	if err != nil {
		panic(err)
	}
	return id
}
