package matching

import (
	"context"
	"math"
	"testing"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

func approvedOnline(id, userID uuid.UUID, vt types.VehicleType, ft types.FuelType, capacity int, pet bool) models.Driver {
	return models.Driver{
		ID: id, UserID: userID,
		Approval: types.ApprovalApproved, Status: types.AvailabilityOnline,
		VehicleType: vt, FuelType: ft, Capacity: capacity, PetFriendly: pet,
		Name: "driver-" + id.String(),
	}
}

func TestFindNearby_OrdersByDistanceAndTruncates(t *testing.T) {
	drivers := newFakeDrivers()
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = mustUUID()
		drivers.put(approvedOnline(ids[i], ids[i], types.VehicleStandard, types.FuelPetrol, 4, false))
	}

	geo := &fakeGeo{hits: []ports.GeoHit{
		{UserID: ids[2], DistanceMeters: 300},
		{UserID: ids[0], DistanceMeters: 100},
		{UserID: ids[4], DistanceMeters: 500},
		{UserID: ids[1], DistanceMeters: 200},
		{UserID: ids[3], DistanceMeters: 400},
	}}

	svc := New(geo, drivers)
	out, err := svc.FindNearby(context.Background(), 1, 1, 1000, 3, models.MatchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	wantOrder := []uuid.UUID{ids[0], ids[1], ids[2]}
	for i, w := range wantOrder {
		if out[i].UserID != w {
			t.Errorf("position %d: got %s, want %s", i, out[i].UserID, w)
		}
	}
}

func TestFindNearby_FiltersByVehicleFuelPetExtraPassengers(t *testing.T) {
	drivers := newFakeDrivers()

	standard := mustUUID()
	drivers.put(approvedOnline(standard, standard, types.VehicleStandard, types.FuelPetrol, 4, false))

	xlElectricPet := mustUUID()
	drivers.put(approvedOnline(xlElectricPet, xlElectricPet, types.VehicleXL, types.FuelElectric, 6, true))

	geo := &fakeGeo{hits: []ports.GeoHit{
		{UserID: standard, DistanceMeters: 100},
		{UserID: xlElectricPet, DistanceMeters: 200},
	}}
	svc := New(geo, drivers)

	tests := []struct {
		name    string
		filters models.MatchFilters
		want    []uuid.UUID
	}{
		{"no filters returns all", models.MatchFilters{}, []uuid.UUID{standard, xlElectricPet}},
		{"vehicle type XL", models.MatchFilters{VehicleType: types.VehicleXL}, []uuid.UUID{xlElectricPet}},
		{"vehicle ANY matches everyone", models.MatchFilters{VehicleType: types.VehicleAny}, []uuid.UUID{standard, xlElectricPet}},
		{"fuel electric", models.MatchFilters{FuelType: types.FuelElectric}, []uuid.UUID{xlElectricPet}},
		{"pet friendly", models.MatchFilters{PetFriendly: true}, []uuid.UUID{xlElectricPet}},
		{"extra passengers needs capacity>=5", models.MatchFilters{ExtraPassengers: true}, []uuid.UUID{xlElectricPet}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.FindNearby(context.Background(), 1, 1, 1000, 10, tt.filters)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(out) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(out), len(tt.want))
			}
			for i, w := range tt.want {
				if out[i].UserID != w {
					t.Errorf("position %d: got %s, want %s", i, out[i].UserID, w)
				}
			}
		})
	}
}

func TestFindNearby_SkipsOfflineAndUnapprovedAndMissingDrivers(t *testing.T) {
	drivers := newFakeDrivers()

	offline := mustUUID()
	offlineDriver := approvedOnline(offline, offline, types.VehicleStandard, types.FuelPetrol, 4, false)
	offlineDriver.Status = types.AvailabilityOffline
	drivers.put(offlineDriver)

	unapproved := mustUUID()
	unapprovedDriver := approvedOnline(unapproved, unapproved, types.VehicleStandard, types.FuelPetrol, 4, false)
	unapprovedDriver.Approval = types.ApprovalPending
	drivers.put(unapprovedDriver)

	ghost := mustUUID() // present in the index, absent from the store

	online := mustUUID()
	drivers.put(approvedOnline(online, online, types.VehicleStandard, types.FuelPetrol, 4, false))

	geo := &fakeGeo{hits: []ports.GeoHit{
		{UserID: offline, DistanceMeters: 100},
		{UserID: unapproved, DistanceMeters: 150},
		{UserID: ghost, DistanceMeters: 175},
		{UserID: online, DistanceMeters: 200},
	}}
	svc := New(geo, drivers)

	out, err := svc.FindNearby(context.Background(), 1, 1, 1000, 10, models.MatchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].UserID != online {
		t.Fatalf("expected only the online approved driver, got %+v", out)
	}
}

func TestFindNearby_RejectsNonFiniteCoordinates(t *testing.T) {
	svc := New(&fakeGeo{}, newFakeDrivers())

	for _, c := range []struct{ lat, lng float64 }{
		{math.NaN(), 1}, {1, math.NaN()}, {math.Inf(1), 1}, {1, math.Inf(-1)},
	} {
		_, err := svc.FindNearby(context.Background(), c.lat, c.lng, 1000, 5, models.MatchFilters{})
		if err == nil {
			t.Errorf("expected error for lat=%v lng=%v", c.lat, c.lng)
		}
	}
}

func TestFindNearby_EmptyWhenNobodyQualifies(t *testing.T) {
	svc := New(&fakeGeo{}, newFakeDrivers())
	out, err := svc.FindNearby(context.Background(), 1, 1, 1000, 5, models.MatchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty slice, got %d", len(out))
	}
}
