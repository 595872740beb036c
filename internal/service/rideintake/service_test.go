package rideintake

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/dispatch"
	"github.com/ridecore/dispatch/internal/service/matching"
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
	mu       sync.Mutex
	rides    map[uuid.UUID]*models.Ride
	createFn func(*models.Ride) error
}

func newFakeRides() *fakeRides { return &fakeRides{rides: make(map[uuid.UUID]*models.Ride)} }

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
	if f.createFn != nil {
		if err := f.createFn(ride); err != nil {
			return nil, err
		}
	}
	ride.ID = mustUUID()
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ride
	f.rides[ride.ID] = &cp
	return ride, nil
}

func (f *fakeRides) AcceptConditional(ctx context.Context, rideID, driverID uuid.UUID, now time.Time) (bool, error) {
	return false, nil
}

func (f *fakeRides) MarkCancelled(ctx context.Context, rideID uuid.UUID, reason types.CancellationReason, cancelledBy uuid.UUID, now time.Time) error {
	return nil
}

func (f *fakeRides) MarkExhausted(ctx context.Context, rideID uuid.UUID, now time.Time) (bool, error) {
	return false, nil
}

type fakeGeo struct{}

func (fakeGeo) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error { return nil }
func (fakeGeo) Remove(ctx context.Context, userID uuid.UUID) error                   { return nil }
func (fakeGeo) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	return nil, nil
}

type fakeDrivers struct{}

func (fakeDrivers) Get(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	return nil, types.ErrDriverNotFound
}
func (fakeDrivers) GetByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	return nil, types.ErrDriverNotFound
}
func (fakeDrivers) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	return nil
}
func (fakeDrivers) UpsertLocation(ctx context.Context, userID uuid.UUID, loc models.DriverLocation) error {
	return nil
}
func (fakeDrivers) GetLocation(ctx context.Context, userID uuid.UUID) (*models.DriverLocation, error) {
	return nil, types.ErrLocationNotFound
}

type fakePublisher struct{}

func (fakePublisher) Publish(ctx context.Context, channel string, event types.EventName, payload any) error {
	return nil
}

func mustUUID() uuid.UUID {
	id, err := uuid.New()
	if err != nil {
		panic(err)
	}
	return id
}

func TestCreate_PersistsPendingRideAndStartsDispatch(t *testing.T) {
	rides := newFakeRides()
	ctrl := dispatch.New(matching.New(fakeGeo{}, fakeDrivers{}), rides, fakePublisher{}, nopLogger{})
	svc := New(rides, ctrl, nopLogger{})

	ride := models.Ride{
		PassengerID: mustUUID(),
		Pickup:      models.Location{Latitude: 1, Longitude: 1},
		Destination: models.Location{Latitude: 2, Longitude: 2},
		VehicleType: types.VehicleStandard,
		TotalFare:   500,
		Currency:    "MMK",
	}

	created, err := svc.Create(context.Background(), ride)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != types.RideStatusPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
	if created.ID == (uuid.UUID{}) {
		t.Fatal("expected an assigned ride id")
	}

	// Start is fire-and-forget: the dispatch controller must now show
	// exactly one active dispatch for the new ride, without Create
	// itself blocking on it.
	if ctrl.ActiveCount() != 1 {
		t.Fatalf("expected exactly 1 active dispatch after Create, got %d", ctrl.ActiveCount())
	}
}

func TestCreate_StoreFailureNeverStartsDispatch(t *testing.T) {
	rides := newFakeRides()
	rides.createFn = func(*models.Ride) error { return context.DeadlineExceeded }
	ctrl := dispatch.New(matching.New(fakeGeo{}, fakeDrivers{}), rides, fakePublisher{}, nopLogger{})
	svc := New(rides, ctrl, nopLogger{})

	_, err := svc.Create(context.Background(), models.Ride{PassengerID: mustUUID()})
	if err == nil {
		t.Fatal("expected Create to propagate a store failure")
	}
	if ctrl.ActiveCount() != 0 {
		t.Fatal("a failed Create must never start a dispatch")
	}
}
