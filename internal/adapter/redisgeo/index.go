package redisgeo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

const (
	geoKey        = "drivers:geo"
	defaultRadius = 5000 // meters
)

// DriverIndex — поисковый индекс позиций водителей на Redis GEO.
// Candidate search is radius + metadata filter: a driver must be online and
// serve the requested vehicle class to receive an offer.
type DriverIndex struct {
	client *redis.Client
	radius float64

	l logger.Logger
}

func New(client *redis.Client, radiusMeters float64, log logger.Logger) *DriverIndex {
	if radiusMeters <= 0 {
		radiusMeters = defaultRadius
	}
	return &DriverIndex{
		client: client,
		radius: radiusMeters,
		l:      log,
	}
}

// Upsert refreshes the driver's position in the index.
func (d *DriverIndex) Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	id := driverID.String()

	if err := d.client.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      id,
		Latitude:  lat,
		Longitude: lng,
	}).Err(); err != nil {
		return fmt.Errorf("driver index: geoadd: %w", err)
	}

	if err := d.client.HSet(ctx, metaKey(id), "updated", time.Now().Format(time.RFC3339)).Err(); err != nil {
		return fmt.Errorf("driver index: hset: %w", err)
	}

	return nil
}

// SetOnline marks the driver as available and records the served class.
func (d *DriverIndex) SetOnline(ctx context.Context, driverID uuid.UUID, class types.VehicleClass) error {
	id := driverID.String()

	if err := d.client.HSet(ctx, metaKey(id), map[string]any{
		"online": "true",
		"class":  class.String(),
	}).Err(); err != nil {
		return fmt.Errorf("driver index: set online: %w", err)
	}

	d.l.Info(wrap.WithDriverID(ctx, id), "driver online", "vehicle_class", class)
	return nil
}

// SetOffline removes the driver from the searchable set entirely.
func (d *DriverIndex) SetOffline(ctx context.Context, driverID uuid.UUID) error {
	id := driverID.String()

	if err := d.client.HSet(ctx, metaKey(id), "online", "false").Err(); err != nil {
		return fmt.Errorf("driver index: set offline: %w", err)
	}
	if err := d.client.ZRem(ctx, geoKey, id).Err(); err != nil {
		return fmt.Errorf("driver index: zrem: %w", err)
	}

	d.l.Info(wrap.WithDriverID(ctx, id), "driver offline")
	return nil
}

// Candidates returns up to limit online drivers near the pickup point that
// serve the requested class, closest first.
func (d *DriverIndex) Candidates(ctx context.Context, pickup models.Location, class types.VehicleClass, limit int) ([]uuid.UUID, error) {
	// over-fetch, the metadata filter below thins the set out
	res, err := d.client.GeoRadius(ctx, geoKey, pickup.Longitude, pickup.Latitude, &redis.GeoRadiusQuery{
		Radius: d.radius,
		Unit:   "m",
		Count:  limit * 3,
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("driver index: georadius: %w", err)
	}

	out := make([]uuid.UUID, 0, limit)
	for _, g := range res {
		if len(out) >= limit {
			break
		}

		meta, err := d.client.HGetAll(ctx, metaKey(g.Name)).Result()
		if err != nil {
			d.l.Warn(ctx, "failed to load driver metadata", "driver_id", g.Name, "error", err.Error())
			continue
		}
		if online, _ := strconv.ParseBool(meta["online"]); !online {
			continue
		}
		if meta["class"] != class.String() {
			continue
		}

		driverID, err := uuid.Parse(g.Name)
		if err != nil {
			continue
		}
		out = append(out, driverID)
	}

	return out, nil
}

func metaKey(id string) string { return "driver:meta:" + id }
