package models

import (
	"time"

	"github.com/GTDGit/photoverify_api/internal/verification"
)

// GeocodeSourceGoogle marks coordinates obtained from the Google Geocoding API.
const GeocodeSourceGoogle = "google"

// PropertyLocation is the geocoded position of the property securing a loan.
type PropertyLocation struct {
	ID                   string     `db:"id" json:"id"`
	LoanID               string     `db:"loan_id" json:"loanId"`
	Latitude             float64    `db:"latitude" json:"latitude"`
	Longitude            float64    `db:"longitude" json:"longitude"`
	GeofenceRadiusMeters int        `db:"geofence_radius_meters" json:"geofenceRadiusMeters"`
	GeocodedAddress      *string    `db:"geocoded_address" json:"geocodedAddress,omitempty"`
	GeocodeSource        string     `db:"geocode_source" json:"geocodeSource"`
	GeocodedAt           *time.Time `db:"geocoded_at" json:"geocodedAt,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// Coordinates returns the location as a verification reference point.
func (l *PropertyLocation) Coordinates() *verification.GPSCoordinates {
	if l == nil {
		return nil
	}
	return &verification.GPSCoordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

// PropertyLocationRequest asks for the property address of a loan to be geocoded.
type PropertyLocationRequest struct {
	Address              string `json:"address" binding:"required"`
	GeofenceRadiusMeters int    `json:"geofenceRadiusMeters"`
}
