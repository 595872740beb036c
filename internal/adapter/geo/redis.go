// Package geo implements ports.GeoIndex: a Redis GEO-command index for
// production, and an in-memory haversine scan as a dependency-free
// fallback for tests and Redis-less runs.
package geo

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ridecore/dispatch/internal/domain/ports"
	"github.com/ridecore/dispatch/pkg/uuid"
)

const defaultKey = "dispatch:drivers:geo"

// RedisIndex backs the Matching Service's nearest-neighbour query with
// Redis GEOADD/GEOSEARCH/ZREM, grounded in
// kcbsilva-TurboDriver/backend/internal/geo/redis_geo.go, generalized
// from a single-nearest km query to an N-result metres query matching
// ports.GeoIndex.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client, key: defaultKey}
}

func (idx *RedisIndex) Upsert(ctx context.Context, userID uuid.UUID, lat, lng float64) error {
	err := idx.client.GeoAdd(ctx, idx.key, &redis.GeoLocation{
		Name:      userID.String(),
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geo upsert: %w", err)
	}
	return nil
}

// Reset drops the whole index. Called once at startup when configured
// to do so, so stale positions from a previous deployment cannot be
// matched against before their drivers reconnect and resend a fresh
// location or presence event.
func (idx *RedisIndex) Reset(ctx context.Context) error {
	if err := idx.client.Del(ctx, idx.key).Err(); err != nil {
		return fmt.Errorf("geo reset: %w", err)
	}
	return nil
}

func (idx *RedisIndex) Remove(ctx context.Context, userID uuid.UUID) error {
	if err := idx.client.ZRem(ctx, idx.key, userID.String()).Err(); err != nil {
		return fmt.Errorf("geo remove: %w", err)
	}
	return nil
}

func (idx *RedisIndex) Search(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]ports.GeoHit, error) {
	res, err := idx.client.GeoSearchLocation(ctx, idx.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lng,
			Latitude:   lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	hits := make([]ports.GeoHit, 0, len(res))
	for _, loc := range res {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			continue
		}
		hits = append(hits, ports.GeoHit{
			UserID:         id,
			Latitude:       loc.Latitude,
			Longitude:      loc.Longitude,
			DistanceMeters: loc.Dist,
		})
	}
	return hits, nil
}
