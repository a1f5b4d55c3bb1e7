package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `
	id, rider_id, driver_id,
	pickup_lat, pickup_lng, pickup_address,
	dropoff_lat, dropoff_lng, dropoff_address,
	vehicle_class, status,
	fare_amount, fare_currency, fare_distance_km,
	cancellation_reason, rating,
	created_at, transition_at, completed_at, cancelled_at`

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO rides (id, rider_id,
                pickup_lat, pickup_lng, pickup_address,
                dropoff_lat, dropoff_lng, dropoff_address,
                vehicle_class, status, created_at, transition_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err := q.Exec(ctx, query,
		ride.ID, ride.RiderID,
		ride.Pickup.Latitude, ride.Pickup.Longitude, ride.Pickup.Address,
		ride.Dropoff.Latitude, ride.Dropoff.Longitude, ride.Dropoff.Address,
		ride.VehicleClass, ride.Status, ride.CreatedAt, ride.TransitionAt,
	)
	if err != nil {
		return fmt.Errorf("ride repo: Create: %w", err)
	}
	return nil
}

// Save перезаписывает изменяемые поля поездки
func (r *RideRepo) Save(ctx context.Context, ride *models.Ride) error {
	q := TxorDB(ctx, r.db)

	var fareAmount, fareDistance *float64
	var fareCurrency *string
	if ride.Fare != nil {
		fareAmount = &ride.Fare.Amount
		fareCurrency = &ride.Fare.Currency
		fareDistance = &ride.Fare.DistanceKm
	}

	// rating is write-once: a transition snapshot queued before the rating
	// landed must not erase it, hence the COALESCE
	query := `
        UPDATE rides
        SET
            driver_id = $2,
            status = $3,
            fare_amount = $4,
            fare_currency = $5,
            fare_distance_km = $6,
            cancellation_reason = $7,
            rating = COALESCE($8, rating),
            transition_at = $9,
            completed_at = $10,
            cancelled_at = $11,
            updated_at = now()
        WHERE id = $1;`

	cmdTag, err := q.Exec(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.Status,
		fareAmount,
		fareCurrency,
		fareDistance,
		ride.CancellationReason,
		ride.Rating,
		ride.TransitionAt,
		ride.CompletedAt,
		ride.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("ride repo: Save: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return types.ErrRideNotFound
	}
	return nil
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1;`

	ride, err := scanRide(q.QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, fmt.Errorf("ride repo: Get: %w", err)
	}
	return ride, nil
}

// Active returns every non-terminal ride. Used to warm the in-memory
// registry at startup.
func (r *RideRepo) Active(ctx context.Context) ([]*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + rideColumns + `
              FROM rides
              WHERE status IN ('REQUESTED', 'ACCEPTED', 'IN_PROGRESS')
              ORDER BY created_at;`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ride repo: Active: %w", err)
	}
	defer rows.Close()

	return collectRides(rows)
}

func (r *RideRepo) HistoryByRider(ctx context.Context, riderID uuid.UUID, limit int) ([]*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + rideColumns + `
              FROM rides
              WHERE rider_id = $1
              ORDER BY created_at DESC
              LIMIT $2;`

	rows, err := q.Query(ctx, query, riderID, limit)
	if err != nil {
		return nil, fmt.Errorf("ride repo: HistoryByRider: %w", err)
	}
	defer rows.Close()

	return collectRides(rows)
}

func (r *RideRepo) HistoryByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + rideColumns + `
              FROM rides
              WHERE driver_id = $1
              ORDER BY created_at DESC
              LIMIT $2;`

	rows, err := q.Query(ctx, query, driverID, limit)
	if err != nil {
		return nil, fmt.Errorf("ride repo: HistoryByDriver: %w", err)
	}
	defer rows.Close()

	return collectRides(rows)
}

func scanRide(row pgx.Row) (*models.Ride, error) {
	var ride models.Ride
	var fareAmount, fareDistance *float64
	var fareCurrency *string

	err := row.Scan(
		&ride.ID, &ride.RiderID, &ride.DriverID,
		&ride.Pickup.Latitude, &ride.Pickup.Longitude, &ride.Pickup.Address,
		&ride.Dropoff.Latitude, &ride.Dropoff.Longitude, &ride.Dropoff.Address,
		&ride.VehicleClass, &ride.Status,
		&fareAmount, &fareCurrency, &fareDistance,
		&ride.CancellationReason, &ride.Rating,
		&ride.CreatedAt, &ride.TransitionAt, &ride.CompletedAt, &ride.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if fareAmount != nil {
		ride.Fare = &models.FareData{
			Amount:     *fareAmount,
			DistanceKm: *fareDistance,
		}
		if fareCurrency != nil {
			ride.Fare.Currency = *fareCurrency
		}
	}

	return &ride, nil
}

func collectRides(rows pgx.Rows) ([]*models.Ride, error) {
	rides := make([]*models.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("ride repo: scan: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ride repo: rows: %w", err)
	}
	return rides, nil
}
