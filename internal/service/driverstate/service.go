// Package driverstate implements the Driver State Service: the
// authoritative transitions of driver availability and location, and
// the gatekeeper for approval.
package driverstate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// driverSettable is the set of availability values a driver's own
// client may request directly. ON_TRIP is never reachable via
// SetAvailability; only via SetAvailabilityInternal.
var driverSettable = map[types.Availability]struct{}{
	types.AvailabilityOnline:  {},
	types.AvailabilityOffline: {},
}

type Service struct {
	drivers ports.DriverStore
	geo     ports.GeoIndex
	log     logger.Logger
}

func New(drivers ports.DriverStore, geo ports.GeoIndex, log logger.Logger) *Service {
	return &Service{drivers: drivers, geo: geo, log: log}
}

// SetAvailability is the driver-client path. NotFound if no
// driver record, Forbidden if approval != APPROVED or target is outside
// the driver-settable set. No-op when current == target.
func (s *Service) SetAvailability(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	ctx = wrap.WithAction(ctx, "set_availability")

	if _, ok := driverSettable[target]; !ok {
		return wrap.Error(ctx, types.ErrInvalidTarget)
	}

	d, err := s.drivers.Get(ctx, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !d.CanGoOnline() {
		return wrap.Error(ctx, types.ErrDriverNotApproved)
	}
	if d.Status == target {
		return nil
	}

	if err := s.drivers.SetAvailability(ctx, userID, target); err != nil {
		return wrap.Error(ctx, fmt.Errorf("set availability: %w", err))
	}

	return s.syncIndex(ctx, userID, target)
}

// SetAvailabilityFromPresence is the webhook path. It
// never raises: a missing or non-APPROVED driver is logged and
// skipped, never surfaced. This is the only path that may drive state
// from outside the owning driver.
func (s *Service) SetAvailabilityFromPresence(ctx context.Context, userID uuid.UUID, target types.Availability) {
	ctx = wrap.WithAction(ctx, "set_availability_from_presence")

	d, err := s.drivers.Get(ctx, userID)
	if err != nil {
		s.log.Warn(ctx, "presence event for unknown driver, skipping", "user_id", userID.String())
		return
	}
	if !d.CanGoOnline() {
		s.log.Warn(ctx, "presence event for non-approved driver, skipping", "user_id", userID.String())
		return
	}
	if d.Status == target {
		return
	}

	if err := s.drivers.SetAvailability(ctx, userID, target); err != nil {
		s.log.Error(ctx, "failed to apply presence transition", err, "user_id", userID.String())
		return
	}

	if err := s.syncIndex(ctx, userID, target); err != nil {
		s.log.Error(ctx, "failed to sync geo index after presence transition", err, "user_id", userID.String())
	}
}

// SetAvailabilityInternal is called by the Acceptance Coordinator on
// claim (target ON_TRIP) and by Dispatch/cancellation paths returning a
// driver to ONLINE. Unlike SetAvailability it accepts ON_TRIP.
func (s *Service) SetAvailabilityInternal(ctx context.Context, userID uuid.UUID, target types.Availability) error {
	ctx = wrap.WithAction(ctx, "set_availability_internal")

	if err := s.drivers.SetAvailability(ctx, userID, target); err != nil {
		return wrap.Error(ctx, fmt.Errorf("set availability internal: %w", err))
	}
	return s.syncIndex(ctx, userID, target)
}

// UpdateLocation upserts the location row and the spatial geometry
// atomically with respect to readers: by the time this returns, any
// subsequent Search sees the new position.
func (s *Service) UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lng float64, heading, speed, accuracy *float64) error {
	ctx = wrap.WithAction(ctx, "update_location")

	if !validCoordinate(lat, lng) {
		return wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	d, err := s.drivers.Get(ctx, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !d.CanGoOnline() {
		return wrap.Error(ctx, types.ErrDriverNotApproved)
	}

	loc := models.DriverLocation{Latitude: lat, Longitude: lng, Heading: heading, Speed: speed, Accuracy: accuracy, UpdatedAt: time.Now()}
	if err := s.drivers.UpsertLocation(ctx, userID, loc); err != nil {
		return wrap.Error(ctx, fmt.Errorf("upsert location: %w", err))
	}

	if d.Status == types.AvailabilityOnline {
		if err := s.geo.Upsert(ctx, userID, lat, lng); err != nil {
			return wrap.Error(ctx, fmt.Errorf("upsert geo index: %w", err))
		}
	}
	return nil
}

// GetStatus returns {availability, approvalStatus, location?}.
func (s *Service) GetStatus(ctx context.Context, userID uuid.UUID) (*models.DriverStatusSnapshot, error) {
	ctx = wrap.WithAction(ctx, "get_driver_status")

	d, err := s.drivers.Get(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	loc, err := s.drivers.GetLocation(ctx, userID)
	if err != nil && err != types.ErrLocationNotFound {
		return nil, wrap.Error(ctx, err)
	}

	return &models.DriverStatusSnapshot{
		DriverID:       d.ID,
		Availability:   d.Status,
		ApprovalStatus: d.Approval,
		Location:       loc,
	}, nil
}

// syncIndex keeps the spatial index consistent with the driver's
// availability: indexed while ONLINE, removed otherwise. Only ONLINE
// drivers with a known location are eligible for matching.
func (s *Service) syncIndex(ctx context.Context, userID uuid.UUID, availability types.Availability) error {
	if availability != types.AvailabilityOnline {
		return s.geo.Remove(ctx, userID)
	}

	loc, err := s.drivers.GetLocation(ctx, userID)
	if err != nil {
		if err == types.ErrLocationNotFound {
			return nil
		}
		return err
	}
	return s.geo.Upsert(ctx, userID, loc.Latitude, loc.Longitude)
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
