// Package verification decides whether a construction or draw-inspection photo was taken
// at the property, recently, by cross-checking the browser location fix, the photo's EXIF
// GPS tags and the property's geocoded location.
package verification

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Confidence grades how much a reviewer can trust the GPS evidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// GPSCoordinates is a single location fix. Accuracy is the device-reported radius in
// meters and is normally only present for browser fixes.
type GPSCoordinates struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Altitude  *float64
	Timestamp *time.Time
}

// Coords is the compact lat/lng pair embedded in Details.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Details is the reviewer-facing rationale for a Result.
type Details struct {
	Message            string     `json:"message"`
	Recommendation     string     `json:"recommendation,omitempty"`
	Warning            string     `json:"warning,omitempty"`
	BrowserAccuracy    *float64   `json:"browserAccuracy,omitempty"`
	DistanceToProperty *int       `json:"distanceToProperty,omitempty"`
	BrowserCoords      *Coords    `json:"browserCoords,omitempty"`
	ExifCoords         *Coords    `json:"exifCoords,omitempty"`
	Threshold          int        `json:"threshold,omitempty"`
	GPSMatchDistance   *int       `json:"gpsMatchDistance,omitempty"`
	PropertyDistance   *int       `json:"propertyDistance,omitempty"`
	GeofenceRadius     int        `json:"geofenceRadius,omitempty"`
	PhotoTimestamp     string     `json:"photoTimestamp,omitempty"`
	Confidence         Confidence `json:"confidence,omitempty"`
	Steps              []string   `json:"details,omitempty"`
}

// Result is the outcome of one verification. Distances are nil when either side of the
// pair was unavailable.
type Result struct {
	Status                          Status     `json:"status"`
	DistanceExifToBrowserMeters     *int       `json:"distanceExifToBrowserMeters"`
	DistanceExifToPropertyMeters    *int       `json:"distanceExifToPropertyMeters"`
	DistanceBrowserToPropertyMeters *int       `json:"distanceBrowserToPropertyMeters"`
	Details                         Details    `json:"verificationDetails"`
	GPSMatchConfidence              Confidence `json:"gpsMatchConfidence"`
}

// VerificationDetails returns Details serialized as JSON text for storage.
func (r Result) VerificationDetails() string {
	b, err := json.Marshal(r.Details)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, r.Details.Message)
	}
	return string(b)
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used for the staleness check.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// Verifier runs the photo location decision procedure. It holds no mutable state and is
// safe for concurrent use.
type Verifier struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewVerifier creates a Verifier with the given thresholds.
func NewVerifier(t Thresholds, opts ...Option) *Verifier {
	v := &Verifier{thresholds: t, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultVerifier = NewVerifier(DefaultThresholds())

// VerifyPhotoLocation verifies with the default thresholds and the wall clock.
func VerifyPhotoLocation(browser, exif, property *GPSCoordinates, photoTimestamp *time.Time) Result {
	return defaultVerifier.Verify(browser, exif, property, photoTimestamp)
}

// Verify classifies a photo from its browser fix, EXIF fix, the property location and the
// optional capture time. Checks run in a fixed order and the first failing check decides
// the status: GPS agreement, then property geofence, then staleness.
func (v *Verifier) Verify(browser, exif, property *GPSCoordinates, photoTimestamp *time.Time) Result {
	t := v.thresholds
	var steps []string

	switch {
	case browser == nil && exif == nil:
		return Result{
			Status: StatusNoGPSData,
			Details: Details{
				Message:        "No GPS data available from browser or photo EXIF",
				Recommendation: "Please enable location services and take a new photo at the property",
			},
			GPSMatchConfidence: ConfidenceNone,
		}

	case browser != nil && exif == nil:
		confidence := ConfidenceNone
		var toProperty *int
		if property != nil {
			d := distance(browser, property)
			toProperty = meters(d)
			steps = append(steps, fmt.Sprintf("Browser GPS %sm from property", formatMeters(d)))
			if d <= t.PropertyGeofenceMeters {
				confidence = ConfidenceMedium
				steps = append(steps, "Browser GPS within property geofence")
			} else {
				confidence = ConfidenceLow
				steps = append(steps, "Browser GPS outside property geofence")
			}
		}
		return Result{
			Status:                          StatusBrowserGPSOnly,
			DistanceBrowserToPropertyMeters: toProperty,
			Details: Details{
				Message:            "Only browser GPS available - photo may have been taken from gallery or GPS stripped",
				BrowserAccuracy:    browser.Accuracy,
				DistanceToProperty: toProperty,
				Steps:              steps,
			},
			GPSMatchConfidence: confidence,
		}

	case browser == nil && exif != nil:
		confidence := ConfidenceNone
		var toProperty *int
		if property != nil {
			d := distance(exif, property)
			toProperty = meters(d)
			steps = append(steps, fmt.Sprintf("EXIF GPS %sm from property", formatMeters(d)))
			if d <= t.PropertyGeofenceMeters {
				confidence = ConfidenceMedium
				steps = append(steps, "EXIF GPS within property geofence")
			} else {
				confidence = ConfidenceLow
				steps = append(steps, "EXIF GPS outside property geofence")
			}
		}
		return Result{
			Status:                       StatusExifGPSOnly,
			DistanceExifToPropertyMeters: toProperty,
			Details: Details{
				Message:            "Only EXIF GPS available - browser location was denied or unavailable",
				DistanceToProperty: toProperty,
				Steps:              steps,
			},
			GPSMatchConfidence: confidence,
		}

	case browser != nil && exif != nil:
		return v.verifyBoth(browser, exif, property, photoTimestamp)
	}

	// Unreachable while the cases above cover every presence combination.
	return Result{
		Status:             StatusPending,
		Details:            Details{Message: "Verification pending"},
		GPSMatchConfidence: ConfidenceNone,
	}
}

func (v *Verifier) verifyBoth(browser, exif, property *GPSCoordinates, photoTimestamp *time.Time) Result {
	t := v.thresholds
	var steps []string

	exifToBrowser := distance(browser, exif)
	steps = append(steps, fmt.Sprintf("Browser-to-EXIF distance: %sm", formatMeters(exifToBrowser)))

	exifToProperty, browserToProperty := math.Inf(1), math.Inf(1)
	if property != nil {
		exifToProperty = distance(exif, property)
		browserToProperty = distance(browser, property)
		steps = append(steps,
			fmt.Sprintf("EXIF to property: %sm", formatMeters(exifToProperty)),
			fmt.Sprintf("Browser to property: %sm", formatMeters(browserToProperty)),
		)
	}

	res := Result{
		DistanceExifToBrowserMeters:     meters(exifToBrowser),
		DistanceExifToPropertyMeters:    meters(exifToProperty),
		DistanceBrowserToPropertyMeters: meters(browserToProperty),
	}

	if !(exifToBrowser <= t.GPSMatchMeters) {
		res.Status = StatusGPSMismatch
		res.GPSMatchConfidence = ConfidenceLow
		res.Details = Details{
			Message:       fmt.Sprintf("GPS mismatch detected: Browser and photo EXIF locations differ by %sm", formatMeters(exifToBrowser)),
			Warning:       "Photo may have been taken at a different location than where uploaded",
			BrowserCoords: &Coords{Lat: browser.Latitude, Lng: browser.Longitude},
			ExifCoords:    &Coords{Lat: exif.Latitude, Lng: exif.Longitude},
			Threshold:     int(t.GPSMatchMeters),
			Steps:         steps,
		}
		return res
	}

	// A missing accuracy counts as acceptable rather than weak.
	res.GPSMatchConfidence = ConfidenceMedium
	if acc := browser.Accuracy; acc != nil && *acc != 0 && *acc <= 20 {
		res.GPSMatchConfidence = ConfidenceHigh
	}

	closest := math.Min(exifToProperty, browserToProperty)

	// One sensor inside the geofence is enough.
	if property != nil && !(exifToProperty <= t.PropertyGeofenceMeters || browserToProperty <= t.PropertyGeofenceMeters) {
		res.Status = StatusOutsideGeofence
		res.Details = Details{
			Message:          "Photo was taken outside the property geofence",
			PropertyDistance: meters(closest),
			GeofenceRadius:   int(t.PropertyGeofenceMeters),
			Steps:            steps,
		}
		return res
	}

	if photoTimestamp != nil {
		age := v.now().Sub(*photoTimestamp)
		if age > t.MaxPhotoAge {
			res.Status = StatusStaleTimestamp
			res.Details = Details{
				Message: fmt.Sprintf("Photo is %d hours old, exceeds %d hour limit",
					int64(math.Round(age.Hours())), int64(t.MaxPhotoAge.Hours())),
				PhotoTimestamp: photoTimestamp.UTC().Format(time.RFC3339Nano),
				Steps:          steps,
			}
			return res
		}
	}

	res.Status = StatusVerified
	res.Details = Details{
		Message:          "Photo location verified - GPS double-check passed",
		GPSMatchDistance: res.DistanceExifToBrowserMeters,
		PropertyDistance: meters(closest),
		Confidence:       res.GPSMatchConfidence,
		Steps:            steps,
	}
	return res
}

func distance(a, b *GPSCoordinates) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// meters converts a rounded distance for storage; non-finite values have no integer form.
func meters(d float64) *int {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	m := int(d)
	return &m
}

func formatMeters(d float64) string {
	if math.IsNaN(d) {
		return "NaN"
	}
	return fmt.Sprintf("%.0f", d)
}
