package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

type SOSRepo struct {
	db *pgxpool.Pool
}

func NewSOSRepo(db *pgxpool.Pool) *SOSRepo {
	return &SOSRepo{db: db}
}

const incidentColumns = `
	id, ride_id, rider_id, type, description,
	lat, lng, address, status, created_at, resolved_at`

func (r *SOSRepo) Create(ctx context.Context, incident *models.SOSIncident) error {
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO sos_incidents (id, ride_id, rider_id, type, description,
                lat, lng, address, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err := q.Exec(ctx, query,
		incident.ID, incident.RideID, incident.RiderID, incident.Type, incident.Description,
		incident.Location.Latitude, incident.Location.Longitude, incident.Location.Address,
		incident.Status, incident.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sos repo: Create: %w", err)
	}
	return nil
}

func (r *SOSRepo) Get(ctx context.Context, incidentID uuid.UUID) (*models.SOSIncident, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + incidentColumns + ` FROM sos_incidents WHERE id = $1;`

	incident, err := scanIncident(q.QueryRow(ctx, query, incidentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("sos repo: Get: %w", err)
	}
	return incident, nil
}

func (r *SOSRepo) ByRide(ctx context.Context, rideID uuid.UUID) ([]*models.SOSIncident, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + incidentColumns + `
              FROM sos_incidents
              WHERE ride_id = $1
              ORDER BY created_at DESC;`

	rows, err := q.Query(ctx, query, rideID)
	if err != nil {
		return nil, fmt.Errorf("sos repo: ByRide: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.SOSIncident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("sos repo: scan: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sos repo: rows: %w", err)
	}
	return incidents, nil
}

// RecentByRide returns the newest incident created after the cutoff,
// or nil when there is none. Backs the trigger dedupe across restarts.
func (r *SOSRepo) RecentByRide(ctx context.Context, rideID uuid.UUID, cutoff time.Time) (*models.SOSIncident, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + incidentColumns + `
              FROM sos_incidents
              WHERE ride_id = $1 AND created_at > $2
              ORDER BY created_at DESC
              LIMIT 1;`

	incident, err := scanIncident(q.QueryRow(ctx, query, rideID, cutoff))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sos repo: RecentByRide: %w", err)
	}
	return incident, nil
}

func (r *SOSRepo) Resolve(ctx context.Context, incidentID uuid.UUID, at time.Time) error {
	q := TxorDB(ctx, r.db)

	query := `UPDATE sos_incidents
              SET status = 'RESOLVED', resolved_at = $2
              WHERE id = $1 AND status = 'OPEN';`

	cmdTag, err := q.Exec(ctx, query, incidentID, at)
	if err != nil {
		return fmt.Errorf("sos repo: Resolve: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// either unknown or already resolved; Get disambiguates for callers
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sos_incidents WHERE id = $1)`, incidentID).Scan(&exists); err != nil {
			return fmt.Errorf("sos repo: Resolve: %w", err)
		}
		if !exists {
			return types.ErrIncidentNotFound
		}
	}
	return nil
}

func scanIncident(row pgx.Row) (*models.SOSIncident, error) {
	var incident models.SOSIncident
	err := row.Scan(
		&incident.ID, &incident.RideID, &incident.RiderID, &incident.Type, &incident.Description,
		&incident.Location.Latitude, &incident.Location.Longitude, &incident.Location.Address,
		&incident.Status, &incident.CreatedAt, &incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}
