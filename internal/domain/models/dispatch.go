package models

import (
	"sync"
	"time"

	"github.com/ridecore/dispatch/pkg/uuid"
)

// RoundSchedule is the ordered, finite sequence of offering rounds. It
// is a configuration constant, not computed from anything else.
type RoundSchedule struct {
	RoundInterval time.Duration
	RadiiMeters   []float64
}

// DefaultRoundSchedule is nine rounds of
// expanding radius at a fixed 20s cadence, plus one trailing grace
// interval before exhaustion is declared.
var DefaultRoundSchedule = RoundSchedule{
	RoundInterval: 20 * time.Second,
	RadiiMeters:   []float64{5000, 8000, 12000, 15000, 20000, 25000, 30000, 30000, 30000},
}

func (s RoundSchedule) Rounds() int { return len(s.RadiiMeters) }

// RadiusFor returns the radius for a zero-based round index. Callers
// must check round < Rounds() first.
func (s RoundSchedule) RadiusFor(round int) float64 { return s.RadiiMeters[round] }

// ActiveDispatch is the in-memory, process-local record describing a
// ride currently being dispatched. The Dispatch Controller exclusively
// owns it for the lifetime of the ride's pending phase; no other
// component reads or writes it directly.
//
// mu guards Notified. Timer is written by the round goroutine and read
// by Cancel on the caller's goroutine; both sides go through the
// controller's map lock, never this mutex.
type ActiveDispatch struct {
	RideID      uuid.UUID
	PassengerID uuid.UUID
	Pickup      Location
	Offer       RideOffer

	mu       sync.Mutex
	Notified map[uuid.UUID]struct{}

	Timer *time.Timer
}

// NewActiveDispatch creates a fresh dispatch record at round 0 with an
// empty notified set.
func NewActiveDispatch(rideID, passengerID uuid.UUID, pickup Location, offer RideOffer) *ActiveDispatch {
	return &ActiveDispatch{
		RideID:      rideID,
		PassengerID: passengerID,
		Pickup:      pickup,
		Offer:       offer,
		Notified:    make(map[uuid.UUID]struct{}),
	}
}

// MarkNotified records that userId has been offered this ride at least
// once. Returns false if it was already notified (never re-notify).
func (d *ActiveDispatch) MarkNotified(userID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Notified[userID]; ok {
		return false
	}
	d.Notified[userID] = struct{}{}
	return true
}

// NotifiedSnapshot returns a copy of the notified set for safe
// iteration outside the lock (used by cancel's broadcast).
func (d *ActiveDispatch) NotifiedSnapshot() []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uuid.UUID, 0, len(d.Notified))
	for id := range d.Notified {
		out = append(out, id)
	}
	return out
}
