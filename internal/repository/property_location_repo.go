package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/photoverify_api/internal/models"
)

// PropertyLocationRepository handles data access for geocoded property locations.
type PropertyLocationRepository struct {
	db *sqlx.DB
}

// NewPropertyLocationRepository creates a new PropertyLocationRepository.
func NewPropertyLocationRepository(db *sqlx.DB) *PropertyLocationRepository {
	return &PropertyLocationRepository{db: db}
}

// GetByLoanID returns the stored location for a loan, or ErrNotFound.
func (r *PropertyLocationRepository) GetByLoanID(ctx context.Context, loanID string) (*models.PropertyLocation, error) {
	const q = `
		SELECT id::text, loan_id, latitude, longitude, geofence_radius_meters,
		       geocoded_address, geocode_source, geocoded_at, created_at, updated_at
		FROM property_locations
		WHERE loan_id = $1`

	var loc models.PropertyLocation
	if err := r.db.GetContext(ctx, &loc, q, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// Upsert stores the location for its loan, replacing any previous geocode.
func (r *PropertyLocationRepository) Upsert(ctx context.Context, loc *models.PropertyLocation) error {
	const q = `
		INSERT INTO property_locations (
			loan_id, latitude, longitude, geofence_radius_meters, geocoded_address, geocode_source, geocoded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (loan_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			geofence_radius_meters = EXCLUDED.geofence_radius_meters,
			geocoded_address = EXCLUDED.geocoded_address,
			geocode_source = EXCLUDED.geocode_source,
			geocoded_at = EXCLUDED.geocoded_at,
			updated_at = NOW()
		RETURNING id::text, created_at, updated_at`

	return r.db.QueryRowContext(ctx, q,
		loc.LoanID, loc.Latitude, loc.Longitude, loc.GeofenceRadiusMeters,
		loc.GeocodedAddress, loc.GeocodeSource, loc.GeocodedAt,
	).Scan(&loc.ID, &loc.CreatedAt, &loc.UpdatedAt)
}
