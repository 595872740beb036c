package driverstate

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

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

type fakeDrivers struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*models.Driver
	locs   map[uuid.UUID]*models.DriverLocation
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{byUser: make(map[uuid.UUID]*models.Driver), locs: make(map[uuid.UUID]*models.DriverLocation)}
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

// fakeGeoIndex records the last upsert/remove call per driver so tests
// can assert index membership tracks availability.
type fakeGeoIndex struct {
	mu      sync.Mutex
	indexed map[uuid.UUID]struct{ lat, lng float64 }
}

func newFakeGeoIndex() *fakeGeoIndex {
	return &fakeGeoIndex{indexed: make(map[uuid.UUID]struct{ lat, lng float64 })}
}

func (g *fakeGeoIndex) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.indexed[userID] = struct{ lat, lng float64 }{lat, lng}
	return nil
}

func (g *fakeGeoIndex) Remove(ctx context.Context, userID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.indexed, userID)
	return nil
}

func (g *fakeGeoIndex) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	return nil, nil
}

func (g *fakeGeoIndex) isIndexed(userID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.indexed[userID]
	return ok
}

func approvedDriver() models.Driver {
	return models.Driver{ID: mustUUID(), UserID: mustUUID(), Approval: types.ApprovalApproved, Status: types.AvailabilityOffline}
}

func mustUUID() uuid.UUID {
	id, err := uuid.New()
	if err != nil {
		panic(err)
	}
	return id
}

func TestSetAvailability_NotFoundAndForbiddenCases(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	if err := svc.SetAvailability(context.Background(), mustUUID(), types.AvailabilityOnline); types.Classify(err) != types.KindNotFound {
		t.Fatalf("expected NotFound for unknown driver, got %v", err)
	}

	pending := models.Driver{ID: mustUUID(), UserID: mustUUID(), Approval: types.ApprovalPending, Status: types.AvailabilityOffline}
	drivers.put(pending)
	if err := svc.SetAvailability(context.Background(), pending.UserID, types.AvailabilityOnline); types.Classify(err) != types.KindForbidden {
		t.Fatalf("expected Forbidden for a non-approved driver, got %v", err)
	}

	approved := approvedDriver()
	drivers.put(approved)
	if err := svc.SetAvailability(context.Background(), approved.UserID, types.AvailabilityOnTrip); err == nil {
		t.Fatal("expected SetAvailability to reject ON_TRIP as not driver-settable")
	}
}

func TestSetAvailability_OnlineIndexesOfflineRemoves(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	d := approvedDriver()
	drivers.put(d)
	drivers.UpsertLocation(context.Background(), d.UserID, models.DriverLocation{Latitude: 1, Longitude: 2})

	if err := svc.SetAvailability(context.Background(), d.UserID, types.AvailabilityOnline); err != nil {
		t.Fatalf("SetAvailability ONLINE: %v", err)
	}
	if !geo.isIndexed(d.UserID) {
		t.Fatal("expected driver indexed after going ONLINE")
	}

	if err := svc.SetAvailability(context.Background(), d.UserID, types.AvailabilityOffline); err != nil {
		t.Fatalf("SetAvailability OFFLINE: %v", err)
	}
	if geo.isIndexed(d.UserID) {
		t.Fatal("expected driver removed from index after going OFFLINE")
	}
}

func TestSetAvailability_NoopWhenAlreadyAtTarget(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	d := approvedDriver()
	d.Status = types.AvailabilityOnline
	drivers.put(d)

	if err := svc.SetAvailability(context.Background(), d.UserID, types.AvailabilityOnline); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	// A no-op must not touch the index (no location was ever set).
	if geo.isIndexed(d.UserID) {
		t.Fatal("no-op SetAvailability must not index the driver")
	}
}

func TestSetAvailabilityFromPresence_NeverRaises(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	// Unknown driver: must simply return, no panic, no mutation.
	svc.SetAvailabilityFromPresence(context.Background(), mustUUID(), types.AvailabilityOnline)

	pending := models.Driver{ID: mustUUID(), UserID: mustUUID(), Approval: types.ApprovalPending, Status: types.AvailabilityOffline}
	drivers.put(pending)
	svc.SetAvailabilityFromPresence(context.Background(), pending.UserID, types.AvailabilityOnline)

	got, err := drivers.Get(context.Background(), pending.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.AvailabilityOffline {
		t.Fatalf("non-approved driver must never be transitioned to ONLINE via presence, got %s", got.Status)
	}
}

func TestSetAvailabilityFromPresence_EnterThenLeaveEndsOffline(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	d := approvedDriver()
	drivers.put(d)

	svc.SetAvailabilityFromPresence(context.Background(), d.UserID, types.AvailabilityOnline)
	svc.SetAvailabilityFromPresence(context.Background(), d.UserID, types.AvailabilityOffline)

	got, err := drivers.Get(context.Background(), d.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.AvailabilityOffline {
		t.Fatalf("enter then leave must leave the driver OFFLINE, got %s", got.Status)
	}
}

func TestSetAvailabilityFromPresence_EnterThenEnterStaysOnline(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	d := approvedDriver()
	drivers.put(d)

	svc.SetAvailabilityFromPresence(context.Background(), d.UserID, types.AvailabilityOnline)
	svc.SetAvailabilityFromPresence(context.Background(), d.UserID, types.AvailabilityOnline)

	got, err := drivers.Get(context.Background(), d.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.AvailabilityOnline {
		t.Fatalf("enter then enter must leave the driver ONLINE, got %s", got.Status)
	}
}

func TestUpdateLocation_RejectsNonFiniteCoordinates(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	d := approvedDriver()
	drivers.put(d)

	nan := math.NaN()
	err := svc.UpdateLocation(context.Background(), d.UserID, nan, 0, nil, nil, nil)
	if types.Classify(err) != types.KindBadRequest {
		t.Fatalf("expected BadRequest for NaN latitude, got %v", err)
	}
}

func TestUpdateLocation_UpdatesIndexOnlyWhenOnline(t *testing.T) {
	drivers := newFakeDrivers()
	geo := newFakeGeoIndex()
	svc := New(drivers, geo, nopLogger{})

	offline := approvedDriver() // Status: OFFLINE
	drivers.put(offline)

	if err := svc.UpdateLocation(context.Background(), offline.UserID, 10, 20, nil, nil, nil); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if geo.isIndexed(offline.UserID) {
		t.Fatal("an OFFLINE driver's location update must not index them")
	}

	online := approvedDriver()
	online.Status = types.AvailabilityOnline
	drivers.put(online)
	if err := svc.UpdateLocation(context.Background(), online.UserID, 10, 20, nil, nil, nil); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if !geo.isIndexed(online.UserID) {
		t.Fatal("an ONLINE driver's location update must index them")
	}
}
