package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

const photoColumns = `
	id::text, loan_id, draw_id, uploaded_by, photo_type, file_key, file_name, file_size_bytes, mime_type,
	exif_latitude, exif_longitude, exif_altitude, exif_timestamp, exif_camera_model, exif_extracted,
	browser_latitude, browser_longitude, browser_accuracy_meters, browser_captured_at,
	distance_exif_to_browser_meters, distance_exif_to_property_meters, distance_browser_to_property_meters,
	gps_permission_denied, exif_gps_missing, notes,
	verification_status, verification_details, gps_match_confidence, processing_attempts, last_processing_error,
	verified_by, verified_at, verification_notes, created_at, updated_at`

// PhotoRepository handles data access for verification photos.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository creates a new PhotoRepository.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a photo row and fills in its generated id and timestamps.
func (r *PhotoRepository) Create(ctx context.Context, p *models.VerificationPhoto) error {
	const q = `
		INSERT INTO verification_photos (
			loan_id, draw_id, uploaded_by, photo_type, file_key, file_name, file_size_bytes, mime_type,
			exif_latitude, exif_longitude, exif_altitude, exif_timestamp, exif_camera_model, exif_extracted,
			browser_latitude, browser_longitude, browser_accuracy_meters, browser_captured_at,
			distance_exif_to_browser_meters, distance_exif_to_property_meters, distance_browser_to_property_meters,
			gps_permission_denied, exif_gps_missing, notes,
			verification_status, verification_details, gps_match_confidence
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,
			$9,$10,$11,$12,$13,$14,
			$15,$16,$17,$18,
			$19,$20,$21,
			$22,$23,$24,
			$25,$26,$27
		) RETURNING id::text, created_at, updated_at`

	return r.db.QueryRowContext(ctx, q,
		p.LoanID, p.DrawID, p.UploadedBy, p.PhotoType, p.FileKey, p.FileName, p.FileSizeBytes, p.MimeType,
		p.ExifLatitude, p.ExifLongitude, p.ExifAltitude, p.ExifTimestamp, p.ExifCameraModel, p.ExifExtracted,
		p.BrowserLatitude, p.BrowserLongitude, p.BrowserAccuracyMeters, p.BrowserCapturedAt,
		p.DistanceExifToBrowserMeters, p.DistanceExifToPropertyMeters, p.DistanceBrowserToPropertyMeters,
		p.GPSPermissionDenied, p.ExifGPSMissing, p.Notes,
		p.VerificationStatus, p.VerificationDetails, p.GPSMatchConfidence,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns the photo with the given id, or ErrNotFound.
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.VerificationPhoto, error) {
	q := `SELECT ` + photoColumns + ` FROM verification_photos WHERE id::text = $1`
	var p models.VerificationPhoto
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByLoan returns every photo of a loan, newest first.
func (r *PhotoRepository) ListByLoan(ctx context.Context, loanID string) ([]models.VerificationPhoto, error) {
	q := `SELECT ` + photoColumns + ` FROM verification_photos WHERE loan_id = $1 ORDER BY created_at DESC`
	out := []models.VerificationPhoto{}
	if err := r.db.SelectContext(ctx, &out, q, loanID); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one page of photos matching the filter together with the total match count.
func (r *PhotoRepository) List(ctx context.Context, f models.PhotoFilter) ([]models.VerificationPhoto, int, error) {
	baseQ := ` FROM verification_photos WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.LoanID != "" {
		baseQ += fmt.Sprintf(" AND loan_id = $%d", argIdx)
		args = append(args, f.LoanID)
		argIdx++
	}
	if f.Status != "" {
		baseQ += fmt.Sprintf(" AND verification_status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+baseQ, args...); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, photoColumns, baseQ, argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset())

	out := []models.VerificationPhoto{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListPending returns photos still pending that were created before olderThan. Photos
// past their attempt budget stay listed until a final decision is saved; the least
// attempted come first so a stuck photo cannot starve new ones.
func (r *PhotoRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.VerificationPhoto, error) {
	q := `SELECT ` + photoColumns + `
		FROM verification_photos
		WHERE verification_status = $1 AND created_at < $2
		ORDER BY processing_attempts ASC, created_at ASC
		LIMIT $3`
	out := []models.VerificationPhoto{}
	if err := r.db.SelectContext(ctx, &out, q, verification.StatusPending, olderThan, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVerification stores extracted EXIF fields and the automated verification outcome.
// Rows already carrying a manual decision are left untouched.
func (r *PhotoRepository) UpdateVerification(ctx context.Context, p *models.VerificationPhoto) error {
	const q = `
		UPDATE verification_photos SET
			exif_latitude = $2,
			exif_longitude = $3,
			exif_altitude = $4,
			exif_timestamp = $5,
			exif_camera_model = $6,
			exif_extracted = $7,
			exif_gps_missing = $8,
			distance_exif_to_browser_meters = $9,
			distance_exif_to_property_meters = $10,
			distance_browser_to_property_meters = $11,
			verification_status = $12,
			verification_details = $13,
			gps_match_confidence = $14,
			last_processing_error = NULL,
			updated_at = NOW()
		WHERE id::text = $1 AND verification_status NOT IN ($15, $16)
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.ExifLatitude, p.ExifLongitude, p.ExifAltitude, p.ExifTimestamp, p.ExifCameraModel, p.ExifExtracted,
		p.ExifGPSMissing,
		p.DistanceExifToBrowserMeters, p.DistanceExifToPropertyMeters, p.DistanceBrowserToPropertyMeters,
		p.VerificationStatus, p.VerificationDetails, p.GPSMatchConfidence,
		verification.StatusManualApproved, verification.StatusManualRejected,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// UpdateReview records a reviewer's manual decision.
func (r *PhotoRepository) UpdateReview(ctx context.Context, id string, status verification.Status, reviewer string, notes *string) (*models.VerificationPhoto, error) {
	q := `
		UPDATE verification_photos SET
			verification_status = $2,
			verified_by = $3,
			verified_at = NOW(),
			verification_notes = $4,
			updated_at = NOW()
		WHERE id::text = $1
		RETURNING ` + photoColumns

	var p models.VerificationPhoto
	if err := r.db.GetContext(ctx, &p, q, id, status, nullString(reviewer), notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// RecordFailure bumps the processing attempt counter and stores the last error.
func (r *PhotoRepository) RecordFailure(ctx context.Context, id string, cause string) error {
	const q = `
		UPDATE verification_photos SET
			processing_attempts = processing_attempts + 1,
			last_processing_error = $2,
			updated_at = NOW()
		WHERE id::text = $1`
	_, err := r.db.ExecContext(ctx, q, id, cause)
	return err
}

// Delete removes a photo row and returns its storage key.
func (r *PhotoRepository) Delete(ctx context.Context, id string) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx, `DELETE FROM verification_photos WHERE id::text = $1 RETURNING file_key`, id).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return key, err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
