// Package presence implements the Presence Sink: the inbound
// translation from batched channel-presence webhook events to driver
// availability transitions. It never raises — a malformed or unknown
// item is skipped and counted as not-processed, never surfaced as an
// error to the webhook caller.
package presence

import (
	"context"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/driverstate"
	"github.com/ridecore/dispatch/pkg/logger"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/metrics"
	"github.com/ridecore/dispatch/pkg/uuid"
)

type Service struct {
	driver *driverstate.Service
	log    logger.Logger
}

func New(driver *driverstate.Service, log logger.Logger) *Service {
	return &Service{driver: driver, log: log}
}

// ProcessBatch applies every channel-presence message in the batch, in
// order, and returns how many were actually acted on. Messages within a
// batch are processed sequentially; concurrent batches may interleave
// for the same driver, which is tolerated (last-write-wins at the store
// layer: SetAvailability keeps whichever write arrives last).
func (s *Service) ProcessBatch(ctx context.Context, batch models.PresenceBatch) int {
	ctx = wrap.WithAction(ctx, "process_presence_batch")

	processed := 0
	for _, item := range batch.Items {
		if !item.IsChannelPresence() {
			continue
		}
		for _, msg := range item.Data.Presence {
			target, ok := availabilityFor(msg.Action)
			if !ok || msg.ClientID == "" {
				continue
			}
			userID, err := uuid.Parse(msg.ClientID)
			if err != nil {
				s.log.Warn(ctx, "presence message with non-uuid clientId, skipping", "client_id", msg.ClientID)
				continue
			}
			s.driver.SetAvailabilityFromPresence(ctx, userID, target)
			metrics.PresenceEventsTotal.WithLabelValues(string(target)).Inc()
			processed++
		}
	}
	return processed
}

func availabilityFor(action types.PresenceAction) (types.Availability, bool) {
	switch action {
	case types.PresenceEnter:
		return types.AvailabilityOnline, true
	case types.PresenceLeave:
		return types.AvailabilityOffline, true
	default:
		return "", false
	}
}
