package types

// EventName identifies the payload shape published on a channel. These
// are the only event names the dispatch core ever emits.
type EventName string

func (e EventName) String() string { return string(e) }

const (
	EventNewRideRequest        EventName = "new_ride_request"
	EventRideCancelled         EventName = "ride_cancelled"
	EventRideAccepted          EventName = "ride_accepted"
	EventRideCancelledByDriver EventName = "ride_cancelled_by_driver"
	EventNoDriverFound         EventName = "no_driver_found"
)
