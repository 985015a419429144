package verification

import "time"

// Default verification thresholds.
const (
	GPSMatchThresholdMeters = 50
	PropertyGeofenceMeters  = 100
	IndoorThresholdMeters   = 150
	MaxAgeHours             = 24
	BrowserMaxAgeMinutes    = 5
)

// Thresholds configures a Verifier. IndoorGeofenceMeters and BrowserFixMaxAge are
// carried for future rules and are not consulted by Verify.
type Thresholds struct {
	GPSMatchMeters         float64
	PropertyGeofenceMeters float64
	IndoorGeofenceMeters   float64
	MaxPhotoAge            time.Duration
	BrowserFixMaxAge       time.Duration
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GPSMatchMeters:         GPSMatchThresholdMeters,
		PropertyGeofenceMeters: PropertyGeofenceMeters,
		IndoorGeofenceMeters:   IndoorThresholdMeters,
		MaxPhotoAge:            MaxAgeHours * time.Hour,
		BrowserFixMaxAge:       BrowserMaxAgeMinutes * time.Minute,
	}
}
