package handler

import (
	"net/http"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/acceptance"
	"github.com/ridecore/dispatch/internal/service/rideintake"
	"github.com/ridecore/dispatch/pkg/idempotency"
	"github.com/ridecore/dispatch/pkg/logger"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// Ride serves the rider-app-facing ride lifecycle endpoints.
type Ride struct {
	rides      ports.RideStore
	drivers    ports.DriverStore
	intake     *rideintake.Service
	acceptance *acceptance.Service
	idempotent *idempotency.Store
	log        logger.Logger
}

func NewRide(rides ports.RideStore, drivers ports.DriverStore, intake *rideintake.Service, acceptance *acceptance.Service, idempotent *idempotency.Store, log logger.Logger) *Ride {
	return &Ride{rides: rides, drivers: drivers, intake: intake, acceptance: acceptance, idempotent: idempotent, log: log}
}

type createRideRequest struct {
	Pickup         models.Location   `json:"pickup"`
	Destination    models.Location   `json:"destination"`
	VehicleType    types.VehicleType `json:"vehicleType"`
	TotalFare      float64           `json:"totalFare"`
	Currency       string            `json:"currency"`
	PassengerNote  *string           `json:"passengerNote,omitempty"`
	PickupPhotoURL *string           `json:"pickupPhotoUrl,omitempty"`
}

// Create godoc
// @Summary      Create a ride and start dispatch
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Success      201 {object} models.Ride
// @Router       /rides [post]
func (h *Ride) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		if rideID, ok := h.idempotent.Lookup(key); ok {
			ride, err := h.rides.Get(ctx, rideID)
			if err == nil {
				writeJSON(w, http.StatusCreated, ride, nil)
				return
			}
		}
	}

	var req createRideRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	ride := models.Ride{
		PassengerID:    user.UserID,
		Pickup:         req.Pickup,
		Destination:    req.Destination,
		VehicleType:    req.VehicleType,
		TotalFare:      req.TotalFare,
		Currency:       req.Currency,
		PassengerNote:  req.PassengerNote,
		PickupPhotoURL: req.PickupPhotoURL,
	}

	created, err := h.intake.Create(ctx, ride)
	if err != nil {
		respondError(ctx, w, h.log, err)
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" {
		h.idempotent.Remember(key, created.ID)
	}

	writeJSON(w, http.StatusCreated, created, nil)
}

// Status godoc
// @Summary      Poll ride status
// @Tags         Rides
// @Produce      json
// @Success      200 {object} models.RideStatusView
// @Router       /rides/{ride_id}/status [get]
func (h *Ride) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	ride, err := h.rides.Get(ctx, rideID)
	if err != nil {
		respondError(ctx, w, h.log, err)
		return
	}

	view := models.RideStatusView{ID: ride.ID, Status: ride.Status}
	if ride.DriverID != nil {
		if d, err := h.drivers.GetByID(ctx, *ride.DriverID); err == nil {
			view.DriverName = &d.Name
			if loc, err := h.drivers.GetLocation(ctx, d.UserID); err == nil {
				view.DriverLocation = loc
			}
		}
	}

	writeJSON(w, http.StatusOK, view, nil)
}

// Accept godoc
// @Summary      Accept a ride offer
// @Tags         Rides
// @Produce      json
// @Success      200 {object} models.RideSnapshot
// @Failure      409 {object} map[string]any
// @Router       /rides/{ride_id}/accept [post]
func (h *Ride) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	snapshot, err := h.acceptance.Accept(ctx, rideID, user.UserID)
	if err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot, nil)
}

// Skip godoc
// @Summary      Skip a ride offer (advisory)
// @Tags         Rides
// @Success      200
// @Router       /rides/{ride_id}/skip [post]
func (h *Ride) Skip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	if err := h.acceptance.Skip(ctx, rideID, user.UserID); err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true}, nil)
}

type cancelRideRequest struct {
	Reason *types.CancellationReason `json:"reason,omitempty"`
}

// Cancel godoc
// @Summary      Cancel a ride
// @Tags         Rides
// @Accept       json
// @Success      200
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	rideID, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		badRequestResponse(w, "invalid ride id")
		return
	}

	var req cancelRideRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err.Error())
			return
		}
	}

	if err := h.acceptance.CancelRide(ctx, rideID, user.UserID, req.Reason); err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true}, nil)
}
