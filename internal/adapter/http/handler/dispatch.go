package handler

import (
	"net/http"
	"strconv"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/internal/service/driverstate"
	"github.com/ridecore/dispatch/internal/service/matching"
	"github.com/ridecore/dispatch/pkg/logger"
	"github.com/ridecore/dispatch/pkg/validator"
)

// Dispatch serves the driver-app-facing availability/location/nearby
// endpoints.
type Dispatch struct {
	driver   *driverstate.Service
	matching *matching.Service
	log      logger.Logger
}

func NewDispatch(driver *driverstate.Service, matching *matching.Service, log logger.Logger) *Dispatch {
	return &Dispatch{driver: driver, matching: matching, log: log}
}

// GetStatus godoc
// @Summary      Get driver status
// @Tags         Dispatch
// @Produce      json
// @Success      200 {object} models.DriverStatusSnapshot
// @Router       /dispatch/status [get]
func (h *Dispatch) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	snap, err := h.driver.GetStatus(ctx, user.UserID)
	if err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, snap, nil)
}

type setStatusRequest struct {
	Status types.Availability `json:"status"`
}

// SetStatus godoc
// @Summary      Set driver availability
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Success      200
// @Router       /dispatch/status [patch]
func (h *Dispatch) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	var req setStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.driver.SetAvailability(ctx, user.UserID, req.Status); err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true}, nil)
}

type locationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// UpdateLocation godoc
// @Summary      Report a driver location fix
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Success      200
// @Router       /dispatch/location [post]
func (h *Dispatch) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := models.UserFromContext(ctx)

	var req locationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.driver.UpdateLocation(ctx, user.UserID, req.Latitude, req.Longitude, req.Heading, req.Speed, req.Accuracy); err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true}, nil)
}

// Nearby godoc
// @Summary      Find nearby drivers
// @Tags         Dispatch
// @Produce      json
// @Success      200 {object} map[string]any
// @Router       /dispatch/nearby [get]
func (h *Dispatch) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qs := r.URL.Query()
	v := validator.New()

	lat, latErr := strconv.ParseFloat(qs.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(qs.Get("lng"), 64)
	v.Check(latErr == nil, "lat", "must be a number")
	v.Check(lngErr == nil, "lng", "must be a number")

	radius := readInt(qs, "radius", 5000, v)
	limit := readInt(qs, "limit", 5, v)

	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	drivers, err := h.matching.FindNearby(ctx, lat, lng, float64(radius), limit, models.MatchFilters{})
	if err != nil {
		respondError(ctx, w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"count": len(drivers), "drivers": drivers}, nil)
}
