// Package acceptance implements the Ride Acceptance Coordinator:
// it moves a ride out of PENDING by a driver's claim or by a party's
// cancellation. The Dispatch Controller's exhaustion path
// (MarkExhausted) is the only other way a ride leaves PENDING.
package acceptance

import (
	"context"
	"fmt"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/dispatch"
	"github.com/ridecore/dispatch/internal/service/driverstate"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/trm"
	"github.com/ridecore/dispatch/pkg/uuid"
)

type Service struct {
	rides     ports.RideStore
	drivers   ports.DriverStore
	driver    *driverstate.Service
	dispatch  *dispatch.Controller
	publisher ports.EventPublisher
	tx        trm.TxManager
	log       logger.Logger
}

func New(rides ports.RideStore, drivers ports.DriverStore, driver *driverstate.Service, ctrl *dispatch.Controller, publisher ports.EventPublisher, tx trm.TxManager, log logger.Logger) *Service {
	return &Service{rides: rides, drivers: drivers, driver: driver, dispatch: ctrl, publisher: publisher, tx: tx, log: log}
}

// Accept claims rideID for driverUserID. The conditional
// update inside AcceptConditional is the sole race boundary; this
// method never re-reads before writing.
func (s *Service) Accept(ctx context.Context, rideID, driverUserID uuid.UUID) (*models.RideSnapshot, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "accept_ride"), rideID.String())

	d, err := s.drivers.Get(ctx, driverUserID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	// The claim and the winner's ON_TRIP transition commit together: a
	// ride is never ACCEPTED with its driver still marked ONLINE.
	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		won, err := s.rides.AcceptConditional(ctx, rideID, d.ID, time.Now())
		if err != nil {
			return fmt.Errorf("accept conditional: %w", err)
		}
		if !won {
			return types.ErrRideAlreadyClaimed
		}
		return s.driver.SetAvailabilityInternal(ctx, driverUserID, types.AvailabilityOnTrip)
	}); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("re-read accepted ride: %w", err))
	}

	loc, err := s.drivers.GetLocation(ctx, driverUserID)
	if err != nil && err != types.ErrLocationNotFound {
		s.log.Warn(ctx, "failed to load driver location for ride_accepted payload", "err", err.Error())
	}

	payload := models.RideAcceptedPayload{RideID: rideID, DriverID: d.ID, DriverName: d.Name, DriverLocation: loc}
	if err := s.publisher.Publish(ctx, models.RiderChannel(ride.PassengerID), types.EventRideAccepted, payload); err != nil {
		s.log.Warn(ctx, "failed to publish ride_accepted", "err", err.Error())
	}

	s.dispatch.Cancel(ctx, rideID)

	return &models.RideSnapshot{Ride: *ride, DriverName: d.Name, DriverLocation: loc}, nil
}

// Skip is an advisory no-op: the ride stays PENDING and the driver
// is not offered it again in any later round (the dispatch's notified
// set already guarantees that).
func (s *Service) Skip(ctx context.Context, rideID, driverUserID uuid.UUID) error {
	return nil
}

// CancelRide cancels a PENDING or ACCEPTED ride on behalf of a party.
// requestedReason is the caller-supplied reason, if any; only
// NO_DRIVERS_AVAILABLE is ever honored, every other value is derived
// from who the actor is.
func (s *Service) CancelRide(ctx context.Context, rideID, actorUserID uuid.UUID, requestedReason *types.CancellationReason) error {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "cancel_ride"), rideID.String())

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ride.IsCancellable() {
		return wrap.Error(ctx, types.ErrRideNotCancellable)
	}

	actorIsPassenger := actorUserID == ride.PassengerID
	var assignedDriver *models.Driver
	actorIsAssignedDriver := false
	if ride.DriverID != nil {
		assignedDriver, err = s.drivers.GetByID(ctx, *ride.DriverID)
		if err == nil && assignedDriver.UserID == actorUserID {
			actorIsAssignedDriver = true
		}
	}
	if !actorIsPassenger && !actorIsAssignedDriver {
		return wrap.Error(ctx, types.ErrNotAuthorized)
	}

	reason := types.ReasonUserCancelled
	if actorIsAssignedDriver {
		reason = types.ReasonDriverCancelled
	}
	if requestedReason != nil && *requestedReason == types.ReasonNoDriversAvailable {
		reason = types.ReasonNoDriversAvailable
	}

	// The cancellation write and the assigned driver's return to ONLINE
	// commit together, mirroring Accept's claim transaction.
	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.rides.MarkCancelled(ctx, rideID, reason, actorUserID, time.Now()); err != nil {
			return fmt.Errorf("mark cancelled: %w", err)
		}
		switch {
		case actorIsAssignedDriver:
			return s.driver.SetAvailabilityInternal(ctx, actorUserID, types.AvailabilityOnline)
		case actorIsPassenger && assignedDriver != nil:
			return s.driver.SetAvailabilityInternal(ctx, assignedDriver.UserID, types.AvailabilityOnline)
		default:
			return nil
		}
	}); err != nil {
		return wrap.Error(ctx, err)
	}

	s.dispatch.Cancel(ctx, rideID)

	switch {
	case actorIsAssignedDriver:
		payload := models.RideCancelledByDriverPayload{RideID: rideID}
		if err := s.publisher.Publish(ctx, models.RiderChannel(ride.PassengerID), types.EventRideCancelledByDriver, payload); err != nil {
			s.log.Warn(ctx, "failed to publish ride_cancelled_by_driver", "err", err.Error())
		}
	case actorIsPassenger && assignedDriver != nil:
		payload := models.RideCancelledPayload{RideID: rideID}
		if err := s.publisher.Publish(ctx, models.DriverPrivateChannel(assignedDriver.UserID), types.EventRideCancelled, payload); err != nil {
			s.log.Warn(ctx, "failed to publish ride_cancelled to assigned driver", "err", err.Error())
		}
	}

	return nil
}
