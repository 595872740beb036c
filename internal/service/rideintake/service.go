// Package rideintake implements the ride-creation edge of the system:
// it persists the initial PENDING row and hands the ride to the
// Dispatch Controller. It is plumbing in front of the controller's
// Start, not a component of its own.
package rideintake

import (
	"context"
	"fmt"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/dispatch"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
)

type Service struct {
	rides    ports.RideStore
	dispatch *dispatch.Controller
	log      logger.Logger
}

func New(rides ports.RideStore, ctrl *dispatch.Controller, log logger.Logger) *Service {
	return &Service{rides: rides, dispatch: ctrl, log: log}
}

// Create persists a new PENDING ride and starts its dispatch
// fire-and-forget. The dispatch failing to start is never surfaced to
// the creation response.
func (s *Service) Create(ctx context.Context, ride models.Ride) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, "create_ride")

	ride.Status = types.RideStatusPending
	ride.CreatedAt = time.Now()

	created, err := s.rides.Create(ctx, &ride)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("create ride: %w", err))
	}

	ctx = wrap.WithRideID(ctx, created.ID.String())
	if err := s.dispatch.Start(ctx, *created); err != nil {
		s.log.Error(ctx, "failed to start dispatch for new ride", err)
	}

	return created, nil
}
