package geo

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/pkg/uuid"
)

const earthRadiusMeters = 6371000.0

// MemoryIndex is a dependency-free ports.GeoIndex backed by a linear
// haversine scan, grounded in
// kcbsilva-TurboDriver/backend/internal/geo/inmemory_geo.go,
// generalized from a single-nearest query to an N-result one matching
// the port interface.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[uuid.UUID][2]float64 // lat, lng
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[uuid.UUID][2]float64)}
}

func (idx *MemoryIndex) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.points[userID] = [2]float64{lat, lng}
	return nil
}

func (idx *MemoryIndex) Remove(ctx context.Context, userID uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.points, userID)
	return nil
}

func (idx *MemoryIndex) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]ports.GeoHit, 0, len(idx.points))
	for id, p := range idx.points {
		d := haversineMeters(lat, lng, p[0], p[1])
		if d > radiusMeters {
			continue
		}
		hits = append(hits, ports.GeoHit{UserID: id, Latitude: p[0], Longitude: p[1], DistanceMeters: d})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceMeters < hits[j].DistanceMeters })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1, rlat2 := toRadians(lat1), toRadians(lat2)
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
