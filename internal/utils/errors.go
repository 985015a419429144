package utils

import "errors"

// Common application errors used across services.
var (
	ErrPhotoNotFound         = errors.New("PHOTO_NOT_FOUND")
	ErrLocationNotFound      = errors.New("PROPERTY_LOCATION_NOT_FOUND")
	ErrInvalidReviewStatus   = errors.New("INVALID_REVIEW_STATUS")
	ErrInvalidFileKey        = errors.New("INVALID_FILE_KEY")
	ErrObjectNotFound        = errors.New("OBJECT_NOT_FOUND")
	ErrObjectTooLarge        = errors.New("OBJECT_TOO_LARGE")
	ErrGeocodingDisabled     = errors.New("GEOCODING_DISABLED")
	ErrAddressNotGeocodable  = errors.New("ADDRESS_NOT_GEOCODABLE")
	ErrUnsupportedMediaType  = errors.New("UNSUPPORTED_MEDIA_TYPE")
	ErrInvalidGeofenceRadius = errors.New("INVALID_GEOFENCE_RADIUS")
	ErrInvalidStatus         = errors.New("INVALID_STATUS")
	ErrPhotoAlreadyReviewed  = errors.New("PHOTO_ALREADY_REVIEWED")
	ErrInvalidLoanID         = errors.New("INVALID_LOAN_ID")
	ErrInvalidReviewer       = errors.New("INVALID_REVIEWER")
)
