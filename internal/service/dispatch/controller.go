// Package dispatch implements the Dispatch Controller: the
// centerpiece per-ride state machine that drives offering rounds,
// de-duplicates notified drivers, respects cancellation, and emits
// lifecycle events. It operates entirely in-process on transient state;
// the ride row is the durable source of truth.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/matching"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/metrics"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// DefaultMatchLimit bounds how many candidates a single round considers
// per radius. Five keeps each round's publish fan-out small while still
// covering the realistic case of several drivers entering range at once.
const DefaultMatchLimit = 5

type Controller struct {
	mu     sync.Mutex
	active map[uuid.UUID]*models.ActiveDispatch

	schedule models.RoundSchedule
	limit    int

	matching  *matching.Service
	rides     ports.RideStore
	publisher ports.EventPublisher
	log       logger.Logger
}

func New(m *matching.Service, rides ports.RideStore, publisher ports.EventPublisher, log logger.Logger) *Controller {
	return &Controller{
		active:    make(map[uuid.UUID]*models.ActiveDispatch),
		schedule:  models.DefaultRoundSchedule,
		limit:     DefaultMatchLimit,
		matching:  m,
		rides:     rides,
		publisher: publisher,
		log:       log,
	}
}

// Start is called fire-and-forget after the ride row is persisted. It
// registers the ActiveDispatch synchronously (so a racing second Start
// for the same ride id is rejected) and runs round 0 on a background
// goroutine detached from the caller's request context.
func (c *Controller) Start(ctx context.Context, ride models.Ride) error {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "dispatch_start"), ride.ID.String())

	d := models.NewActiveDispatch(ride.ID, ride.PassengerID, ride.Pickup, models.NewRideOffer(ride))

	c.mu.Lock()
	if _, exists := c.active[ride.ID]; exists {
		c.mu.Unlock()
		return wrap.Error(ctx, types.ErrDispatchAlreadyActive)
	}
	c.active[ride.ID] = d
	c.mu.Unlock()
	metrics.ActiveDispatchesGauge.Set(float64(c.ActiveCount()))

	bg := detach(ctx)
	go c.runRound(bg, d, ride.VehicleType, 0)

	return nil
}

// Cancel is idempotent: it disarms the pending timer, removes the
// ActiveDispatch, and publishes ride_cancelled to every previously
// notified driver. Safe to call when no dispatch is active.
func (c *Controller) Cancel(ctx context.Context, rideID uuid.UUID) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "dispatch_cancel"), rideID.String())

	// Snapshot the timer handle under the map lock: arm writes it under
	// the same lock from the round goroutine, so reading it unlocked
	// would race with an in-flight arm.
	c.mu.Lock()
	d, ok := c.active[rideID]
	var timer *time.Timer
	if ok {
		delete(c.active, rideID)
		timer = d.Timer
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	metrics.ActiveDispatchesGauge.Set(float64(c.ActiveCount()))
	if timer != nil {
		timer.Stop()
	}

	payload := models.RideCancelledPayload{RideID: rideID}
	for _, userID := range d.NotifiedSnapshot() {
		channel := models.DriverPrivateChannel(userID)
		if err := c.publisher.Publish(ctx, channel, types.EventRideCancelled, payload); err != nil {
			c.log.Warn(ctx, "failed to publish ride_cancelled to notified driver", "user_id", userID.String(), "err", err.Error())
		}
	}
}

// runRound executes one offering round. It is
// started once on a background goroutine from Start for round 0, and
// thereafter from its own armed timer.
func (c *Controller) runRound(ctx context.Context, d *models.ActiveDispatch, vehicleType types.VehicleType, round int) {
	if c.isStale(d) {
		return
	}

	if round >= c.schedule.Rounds() {
		c.arm(d, func() { c.exhaust(ctx, d) })
		return
	}

	ride, err := c.rides.Get(ctx, d.RideID)
	if err != nil || !ride.IsPending() {
		// Acceptance or an external cancel raced in, or the store
		// failed; either way this dispatch has nothing more to do.
		c.removeIfCurrent(d)
		if err != nil {
			c.log.Error(ctx, "dispatch round aborted: ride re-read failed", err, "round", round)
		}
		return
	}

	radius := c.schedule.RadiusFor(round)
	filters := models.MatchFilters{VehicleType: vehicleType}

	candidates, err := c.matching.FindNearby(ctx, d.Pickup.Latitude, d.Pickup.Longitude, radius, c.limit, filters)
	if err != nil {
		c.log.Error(ctx, "dispatch round aborted: matching query failed", err, "round", round)
		metrics.DispatchRoundsTotal.WithLabelValues("error").Inc()
		c.removeIfCurrent(d)
		return
	}
	metrics.DispatchRoundsTotal.WithLabelValues("ok").Inc()

	for _, cand := range candidates {
		if !d.MarkNotified(cand.UserID) {
			continue
		}
		channel := models.DriverPrivateChannel(cand.UserID)
		if err := c.publisher.Publish(ctx, channel, types.EventNewRideRequest, d.Offer); err != nil {
			// At-least-once, best-effort: a single failed publish must
			// not abort the round.
			c.log.Warn(ctx, "failed to publish new_ride_request", "user_id", cand.UserID.String(), "err", err.Error())
			metrics.OffersPublishedTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.OffersPublishedTotal.WithLabelValues("ok").Inc()
	}

	next := round + 1
	c.arm(d, func() { c.runRound(ctx, d, vehicleType, next) })
}

// exhaust implements the exhaustion procedure.
func (c *Controller) exhaust(ctx context.Context, d *models.ActiveDispatch) {
	c.removeIfCurrent(d)
	metrics.ActiveDispatchesGauge.Set(float64(c.ActiveCount()))
	metrics.DispatchRoundsTotal.WithLabelValues("exhausted").Inc()

	ride, err := c.rides.Get(ctx, d.RideID)
	if err != nil {
		c.log.Error(ctx, "exhaustion aborted: ride re-read failed", err)
		return
	}
	if !ride.IsPending() {
		return
	}

	ok, err := c.rides.MarkExhausted(ctx, d.RideID, time.Now())
	if err != nil {
		c.log.Error(ctx, "exhaustion aborted: mark-cancelled failed", err)
		return
	}
	if !ok {
		return
	}

	channel := models.RiderChannel(d.PassengerID)
	payload := models.NoDriverFoundPayload{RideID: d.RideID}
	if err := c.publisher.Publish(ctx, channel, types.EventNoDriverFound, payload); err != nil {
		c.log.Warn(ctx, "failed to publish no_driver_found", "err", err.Error())
	}
}

// arm stores a single timer handle on the dispatch, arming it for one
// ROUND_INTERVAL. A timer firing after the dispatch has already been
// removed detects the absence via isStale and exits cleanly.
func (c *Controller) arm(d *models.ActiveDispatch, fn func()) {
	timer := time.AfterFunc(c.schedule.RoundInterval, fn)

	c.mu.Lock()
	d.Timer = timer
	c.mu.Unlock()
}

func (c *Controller) isStale(d *models.ActiveDispatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.active[d.RideID]
	return !ok || cur != d
}

// removeIfCurrent deletes the map entry only if it still points at this
// exact dispatch, so a stale goroutine never clobbers a dispatch that
// replaced it (start on a since-cleaned-up ride id).
func (c *Controller) removeIfCurrent(d *models.ActiveDispatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.active[d.RideID]; ok && cur == d {
		delete(c.active, d.RideID)
	}
}

// SetRoundInterval overrides the cadence between rounds without
// touching the radius progression. Called once at wiring time, before
// any Start.
func (c *Controller) SetRoundInterval(d time.Duration) {
	if d > 0 {
		c.schedule.RoundInterval = d
	}
}

// ActiveCount reports the number of rides currently being dispatched;
// exposed for the ActiveDispatchesGauge metric.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// detach carries the logging context forward onto a background context
// that outlives the originating HTTP request, mirroring this lineage's
// fire-and-forget goroutine pattern for long-running ride work.
func detach(ctx context.Context) context.Context {
	return wrap.WithLogCtx(context.Background(), wrap.GetLogCtx(ctx))
}
