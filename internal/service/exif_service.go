package service

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
)

// exifTimeLayout is the EXIF 2.x date format. EXIF carries no zone so values are read as UTC.
const exifTimeLayout = "2006:01:02 15:04:05"

// ExifData is the location metadata embedded in an uploaded image.
type ExifData struct {
	HasExif     bool
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
	Timestamp   *time.Time
	CameraModel string
}

// HasGPS reports whether both coordinates were recovered.
func (d *ExifData) HasGPS() bool {
	return d != nil && d.Latitude != nil && d.Longitude != nil
}

// ExifService extracts GPS position, capture time and camera from image bytes.
type ExifService struct{}

// NewExifService creates a new EXIF service.
func NewExifService() *ExifService {
	return &ExifService{}
}

// Extract never fails: unreadable or absent EXIF yields HasExif=false, and
// individual fields that cannot be decoded are left nil.
func (s *ExifService) Extract(data []byte) *ExifData {
	out := &ExifData{}

	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		if err != nil {
			log.Debug().Err(err).Msg("No EXIF block in image")
		}
		return out
	}
	if err != nil && exif.IsCriticalError(err) {
		log.Debug().Err(err).Msg("Corrupt EXIF block in image")
		return out
	}
	out.HasExif = true

	readField("gps", func() {
		if lat, lng, err := x.LatLong(); err == nil && validLatLng(lat, lng) {
			out.Latitude = &lat
			out.Longitude = &lng
		}
	})
	readField("altitude", func() {
		if alt, ok := altitude(x); ok {
			out.Altitude = &alt
		}
	})
	readField("timestamp", func() {
		if ts, ok := captureTime(x); ok {
			out.Timestamp = &ts
		}
	})
	readField("camera", func() {
		out.CameraModel = cameraModel(x)
	})
	return out
}

// readField runs one field decoder. A panic while decoding a malformed tag drops only
// that field.
func readField(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("field", name).Interface("panic", r).Msg("Malformed EXIF field skipped")
		}
	}()
	fn()
}

func validLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lng) <= 180
}

// altitude applies GPSAltitudeRef (1 = below sea level).
func altitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return 0, false
	}
	// 0/0 is written by phones without an altitude fix.
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	alt := float64(num) / float64(den)
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			alt = -alt
		}
	}
	return alt, true
}

// captureTime prefers DateTimeOriginal and falls back to DateTime.
func captureTime(x *exif.Exif) (time.Time, bool) {
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		v, err := tag.StringVal()
		if err != nil {
			continue
		}
		ts, err := time.ParseInLocation(exifTimeLayout, strings.TrimSpace(v), time.UTC)
		if err != nil {
			continue
		}
		return ts, true
	}
	return time.Time{}, false
}

// cameraModel returns "Make Model", or just the model when the make is absent.
func cameraModel(x *exif.Exif) string {
	model := stringTag(x, exif.Model)
	if model == "" {
		return ""
	}
	if mk := stringTag(x, exif.Make); mk != "" {
		return mk + " " + model
	}
	return model
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
