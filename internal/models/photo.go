package models

import (
	"regexp"
	"time"

	"github.com/GTDGit/photoverify_api/internal/verification"
)

// MaxReviewerLength matches the verified_by column.
const MaxReviewerLength = 128

// Loan ids become a storage key prefix and must fit the loan_id column.
var loanIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidLoanID reports whether id can be used as a loan identifier.
func ValidLoanID(id string) bool {
	return loanIDPattern.MatchString(id)
}

// VerificationPhoto is a construction or draw-inspection photo together with the
// location evidence collected at upload and the verification outcome.
type VerificationPhoto struct {
	ID            string  `db:"id" json:"id"`
	LoanID        string  `db:"loan_id" json:"loanId"`
	DrawID        *string `db:"draw_id" json:"drawId,omitempty"`
	UploadedBy    *string `db:"uploaded_by" json:"uploadedBy,omitempty"`
	PhotoType     string  `db:"photo_type" json:"photoType"`
	FileKey       string  `db:"file_key" json:"fileKey"`
	FileName      string  `db:"file_name" json:"fileName"`
	FileSizeBytes *int64  `db:"file_size_bytes" json:"fileSizeBytes,omitempty"`
	MimeType      *string `db:"mime_type" json:"mimeType,omitempty"`

	ExifLatitude    *float64   `db:"exif_latitude" json:"exifLatitude,omitempty"`
	ExifLongitude   *float64   `db:"exif_longitude" json:"exifLongitude,omitempty"`
	ExifAltitude    *float64   `db:"exif_altitude" json:"exifAltitude,omitempty"`
	ExifTimestamp   *time.Time `db:"exif_timestamp" json:"exifTimestamp,omitempty"`
	ExifCameraModel *string    `db:"exif_camera_model" json:"exifCameraModel,omitempty"`
	ExifExtracted   bool       `db:"exif_extracted" json:"exifExtracted"`

	BrowserLatitude       *float64   `db:"browser_latitude" json:"browserLatitude,omitempty"`
	BrowserLongitude      *float64   `db:"browser_longitude" json:"browserLongitude,omitempty"`
	BrowserAccuracyMeters *float64   `db:"browser_accuracy_meters" json:"browserAccuracyMeters,omitempty"`
	BrowserCapturedAt     *time.Time `db:"browser_captured_at" json:"browserCapturedAt,omitempty"`

	DistanceExifToBrowserMeters     *int `db:"distance_exif_to_browser_meters" json:"distanceExifToBrowserMeters"`
	DistanceExifToPropertyMeters    *int `db:"distance_exif_to_property_meters" json:"distanceExifToPropertyMeters"`
	DistanceBrowserToPropertyMeters *int `db:"distance_browser_to_property_meters" json:"distanceBrowserToPropertyMeters"`

	GPSPermissionDenied bool    `db:"gps_permission_denied" json:"gpsPermissionDenied"`
	ExifGPSMissing      bool    `db:"exif_gps_missing" json:"exifGpsMissing"`
	Notes               *string `db:"notes" json:"notes,omitempty"`

	VerificationStatus  verification.Status     `db:"verification_status" json:"verificationStatus"`
	VerificationDetails *string                 `db:"verification_details" json:"verificationDetails,omitempty"`
	GPSMatchConfidence  verification.Confidence `db:"gps_match_confidence" json:"gpsMatchConfidence"`
	ProcessingAttempts  int                     `db:"processing_attempts" json:"-"`
	LastProcessingError *string                 `db:"last_processing_error" json:"-"`

	VerifiedBy        *string    `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt        *time.Time `db:"verified_at" json:"verifiedAt,omitempty"`
	VerificationNotes *string    `db:"verification_notes" json:"verificationNotes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// BrowserFix returns the browser geolocation fix, or nil when either coordinate is missing.
func (p *VerificationPhoto) BrowserFix() *verification.GPSCoordinates {
	if p.BrowserLatitude == nil || p.BrowserLongitude == nil {
		return nil
	}
	return &verification.GPSCoordinates{
		Latitude:  *p.BrowserLatitude,
		Longitude: *p.BrowserLongitude,
		Accuracy:  p.BrowserAccuracyMeters,
		Timestamp: p.BrowserCapturedAt,
	}
}

// ExifFix returns the GPS position embedded in the image, or nil when absent.
func (p *VerificationPhoto) ExifFix() *verification.GPSCoordinates {
	if p.ExifLatitude == nil || p.ExifLongitude == nil {
		return nil
	}
	return &verification.GPSCoordinates{
		Latitude:  *p.ExifLatitude,
		Longitude: *p.ExifLongitude,
		Altitude:  p.ExifAltitude,
		Timestamp: p.ExifTimestamp,
	}
}

// ApplyResult copies a verification outcome onto the record.
func (p *VerificationPhoto) ApplyResult(res verification.Result) {
	details := res.VerificationDetails()
	p.VerificationStatus = res.Status
	p.VerificationDetails = &details
	p.GPSMatchConfidence = res.GPSMatchConfidence
	p.DistanceExifToBrowserMeters = res.DistanceExifToBrowserMeters
	p.DistanceExifToPropertyMeters = res.DistanceExifToPropertyMeters
	p.DistanceBrowserToPropertyMeters = res.DistanceBrowserToPropertyMeters
}

// RegisterPhotoRequest is sent by the capture page after the file is PUT to the upload URL.
// Browser coordinates arrive as strings, matching what the Geolocation API wrapper sends.
type RegisterPhotoRequest struct {
	PhotoType             string     `json:"photoType" binding:"max=64"`
	FileKey               string     `json:"fileKey" binding:"required"`
	FileName              string     `json:"fileName" binding:"required"`
	FileSizeBytes         *int64     `json:"fileSizeBytes,omitempty"`
	MimeType              *string    `json:"mimeType,omitempty" binding:"omitempty,max=128"`
	DrawID                *string    `json:"drawId,omitempty" binding:"omitempty,max=64"`
	UploadedBy            *string    `json:"uploadedBy,omitempty" binding:"omitempty,max=128"`
	BrowserLatitude       *string    `json:"browserLatitude,omitempty"`
	BrowserLongitude      *string    `json:"browserLongitude,omitempty"`
	BrowserAccuracyMeters *float64   `json:"browserAccuracyMeters,omitempty"`
	BrowserCapturedAt     *time.Time `json:"browserCapturedAt,omitempty"`
	GPSPermissionDenied   bool       `json:"gpsPermissionDenied"`
	Notes                 *string    `json:"notes,omitempty"`
}

// UploadURLRequest asks for a presigned URL for a new photo.
type UploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType"`
	PhotoType   string `json:"photoType" binding:"max=64"`
}

// UploadURLResponse carries the presigned PUT URL and the key to register afterwards.
type UploadURLResponse struct {
	UploadURL string    `json:"uploadURL"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReviewPhotoRequest is a reviewer's manual decision on a photo.
type ReviewPhotoRequest struct {
	VerificationStatus verification.Status `json:"verificationStatus" binding:"required"`
	VerificationNotes  *string             `json:"verificationNotes,omitempty"`
	ReviewedBy         string              `json:"reviewedBy" binding:"max=128"`
}

// PhotoFilter selects photos for the review queue.
type PhotoFilter struct {
	LoanID string
	Status verification.Status
	Page   int
	Limit  int
}

// Offset returns the row offset for the filter's page.
func (f PhotoFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// StatusInfo describes a status for reviewer UIs.
type StatusInfo struct {
	Status verification.Status `json:"status"`
	Label  string              `json:"label"`
	Color  verification.Color  `json:"color"`
}
