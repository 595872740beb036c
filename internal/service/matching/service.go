// Package matching implements the Matching Service: a pure query
// layer over the spatial index and the driver store.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ridecore/dispatch/internal/domain/models"
	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/internal/domain/types"
	wrap "github.com/ridecore/dispatch/pkg/logger/wrapper"
	"github.com/ridecore/dispatch/pkg/metrics"
)

type Service struct {
	geo     ports.GeoIndex
	drivers ports.DriverStore
}

func New(geo ports.GeoIndex, drivers ports.DriverStore) *Service {
	return &Service{geo: geo, drivers: drivers}
}

// FindNearby returns the nearest eligible drivers to (lat,lng), within
// radiusMeters, matching filters, sorted by ascending distance and
// truncated to limit. Only ONLINE, APPROVED drivers with a known
// location qualify. An empty slice (not an error) is returned
// when nobody qualifies.
func (s *Service) FindNearby(ctx context.Context, lat, lng, radiusMeters float64, limit int, filters models.MatchFilters) ([]models.NearbyDriver, error) {
	ctx = wrap.WithAction(ctx, "find_nearby_drivers")
	defer func(start time.Time) { metrics.MatchingQueryDuration.Observe(time.Since(start).Seconds()) }(time.Now())

	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return nil, wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	// Overfetch from the spatial index since the business filters below
	// may exclude some candidates; the index itself knows nothing about
	// vehicle type or approval.
	overfetch := limit * 4
	if overfetch < limit {
		overfetch = limit
	}

	hits, err := s.geo.Search(ctx, lat, lng, radiusMeters, overfetch)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("geo search: %w", err))
	}

	out := make([]models.NearbyDriver, 0, len(hits))
	for _, h := range hits {
		d, err := s.drivers.Get(ctx, h.UserID)
		if err != nil {
			// Index and store can drift momentarily (e.g. driver went
			// offline between index write and this read); skip rather
			// than fail the whole query.
			continue
		}
		if d.Status != types.AvailabilityOnline || !d.CanGoOnline() {
			continue
		}
		if !filters.Matches(*d) {
			continue
		}

		out = append(out, models.NearbyDriver{
			DriverID:       d.ID,
			UserID:         d.UserID,
			DriverName:     d.Name,
			Latitude:       h.Latitude,
			Longitude:      h.Longitude,
			DistanceMeters: h.DistanceMeters,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
