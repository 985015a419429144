package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/repository"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxErrorLength   = 500
	maxPage          = 100000

	msgMetadataMissing = "Photo has no EXIF metadata and no browser location was captured"
)

// PhotoStore persists verification photos.
type PhotoStore interface {
	Create(ctx context.Context, p *models.VerificationPhoto) error
	GetByID(ctx context.Context, id string) (*models.VerificationPhoto, error)
	ListByLoan(ctx context.Context, loanID string) ([]models.VerificationPhoto, error)
	List(ctx context.Context, f models.PhotoFilter) ([]models.VerificationPhoto, int, error)
	UpdateVerification(ctx context.Context, p *models.VerificationPhoto) error
	UpdateReview(ctx context.Context, id string, status verification.Status, reviewer string, notes *string) (*models.VerificationPhoto, error)
	RecordFailure(ctx context.Context, id string, cause string) error
	Delete(ctx context.Context, id string) (string, error)
}

// ObjectStore holds the uploaded image files.
type ObjectStore interface {
	ObjectKey(loanID, fileName string) string
	OwnsKey(loanID, key string) bool
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignExpiry() time.Duration
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// MetadataExtractor reads EXIF metadata from image bytes.
type MetadataExtractor interface {
	Extract(data []byte) *ExifData
}

// PropertyLocator returns the reference location of a loan's property, or nil when unknown.
type PropertyLocator interface {
	GetPropertyLocation(ctx context.Context, loanID string) (*models.PropertyLocation, error)
}

// PhotoEventPublisher is notified whenever a photo's status changes.
type PhotoEventPublisher interface {
	PhotoVerified(p *models.VerificationPhoto)
	PhotoReviewed(p *models.VerificationPhoto)
}

// PhotoVerificationService runs the upload, verification and review workflow for photos.
type PhotoVerificationService struct {
	photos     PhotoStore
	objects    ObjectStore
	extractor  MetadataExtractor
	locations  PropertyLocator
	events     PhotoEventPublisher
	thresholds verification.Thresholds
	now        func() time.Time
}

// NewPhotoVerificationService creates a new photo verification service.
func NewPhotoVerificationService(
	photos PhotoStore,
	objects ObjectStore,
	extractor MetadataExtractor,
	locations PropertyLocator,
	events PhotoEventPublisher,
	thresholds verification.Thresholds,
) *PhotoVerificationService {
	return &PhotoVerificationService{
		photos:     photos,
		objects:    objects,
		extractor:  extractor,
		locations:  locations,
		events:     events,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// CreateUploadURL issues a presigned PUT URL for a new photo of the loan.
func (s *PhotoVerificationService) CreateUploadURL(ctx context.Context, loanID string, req *models.UploadURLRequest) (*models.UploadURLResponse, error) {
	if !models.ValidLoanID(loanID) {
		return nil, utils.ErrInvalidLoanID
	}
	if req.ContentType != "" && !isImageType(req.ContentType) {
		return nil, utils.ErrUnsupportedMediaType
	}

	key := s.objects.ObjectKey(loanID, req.FileName)
	url, err := s.objects.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, err
	}

	return &models.UploadURLResponse{
		UploadURL: url,
		FileKey:   key,
		ExpiresAt: s.now().UTC().Add(s.objects.PresignExpiry()),
	}, nil
}

// RegisterPhoto records an uploaded photo and verifies it. When the object cannot be
// read yet the photo is saved as pending for the background worker.
func (s *PhotoVerificationService) RegisterPhoto(ctx context.Context, loanID string, req *models.RegisterPhotoRequest) (*models.VerificationPhoto, error) {
	if !models.ValidLoanID(loanID) {
		return nil, utils.ErrInvalidLoanID
	}
	if !s.objects.OwnsKey(loanID, req.FileKey) {
		return nil, utils.ErrInvalidFileKey
	}
	if req.MimeType != nil && *req.MimeType != "" && !isImageType(*req.MimeType) {
		return nil, utils.ErrUnsupportedMediaType
	}

	photoType := req.PhotoType
	if photoType == "" {
		photoType = "progress"
	}
	p := &models.VerificationPhoto{
		LoanID:              loanID,
		DrawID:              req.DrawID,
		UploadedBy:          req.UploadedBy,
		PhotoType:           photoType,
		FileKey:             req.FileKey,
		FileName:            req.FileName,
		FileSizeBytes:       req.FileSizeBytes,
		MimeType:            req.MimeType,
		GPSPermissionDenied: req.GPSPermissionDenied,
		Notes:               req.Notes,
		VerificationStatus:  verification.StatusPending,
		GPSMatchConfidence:  verification.ConfidenceNone,
	}

	lat := verification.ParseGPSCoordinatePtr(req.BrowserLatitude)
	lng := verification.ParseGPSCoordinatePtr(req.BrowserLongitude)
	if lat != nil && lng != nil {
		p.BrowserLatitude = lat
		p.BrowserLongitude = lng
		p.BrowserAccuracyMeters = req.BrowserAccuracyMeters
		p.BrowserCapturedAt = req.BrowserCapturedAt
	}

	if err := s.photos.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}

	log.Info().
		Str("photo_id", p.ID).
		Str("loan_id", loanID).
		Bool("browser_fix", p.BrowserFix() != nil).
		Bool("gps_permission_denied", p.GPSPermissionDenied).
		Msg("Verification photo registered")

	if err := s.process(ctx, p); err != nil {
		s.recordFailure(ctx, p, err)
	}
	return p, nil
}

// ProcessPending retries a pending photo. On the final attempt a photo whose object
// still cannot be read is decided from whatever is already known, and a failure is only
// counted if that decision cannot be saved either, so the photo stays eligible.
func (s *PhotoVerificationService) ProcessPending(ctx context.Context, p *models.VerificationPhoto, final bool) error {
	err := s.process(ctx, p)
	if err == nil || errors.Is(err, utils.ErrPhotoAlreadyReviewed) {
		return nil
	}
	if !final {
		s.recordFailure(ctx, p, err)
		return err
	}

	log.Warn().
		Err(err).
		Str("photo_id", p.ID).
		Int("attempts", p.ProcessingAttempts).
		Msg("Giving up on photo processing, deciding with stored data")
	err = s.decide(ctx, p, p.ExifExtracted)
	if err == nil {
		err = s.save(ctx, p)
	}
	if err != nil && !errors.Is(err, utils.ErrPhotoAlreadyReviewed) {
		s.recordFailure(ctx, p, err)
		return err
	}
	return nil
}

// Reverify recomputes the verification of a photo from its stored coordinates.
// The object is only fetched again when no EXIF block has been read from it yet.
func (s *PhotoVerificationService) Reverify(ctx context.Context, id string) (*models.VerificationPhoto, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.VerificationStatus.IsManualReview() {
		return nil, utils.ErrPhotoAlreadyReviewed
	}

	if !p.ExifExtracted {
		if err := s.process(ctx, p); err != nil {
			s.recordFailure(ctx, p, err)
			return nil, err
		}
		return p, nil
	}

	if err := s.decide(ctx, p, true); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Review records a reviewer's manual decision on a photo.
func (s *PhotoVerificationService) Review(ctx context.Context, id string, status verification.Status, notes *string, reviewer string) (*models.VerificationPhoto, error) {
	if !status.IsManualReview() {
		return nil, utils.ErrInvalidReviewStatus
	}
	reviewer = strings.TrimSpace(reviewer)
	if len(reviewer) > models.MaxReviewerLength {
		return nil, utils.ErrInvalidReviewer
	}

	p, err := s.photos.UpdateReview(ctx, id, status, reviewer, notes)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	log.Info().
		Str("photo_id", p.ID).
		Str("status", string(status)).
		Str("reviewer", reviewer).
		Msg("Photo reviewed")
	s.publishReviewed(p)
	return p, nil
}

// Get returns a single photo.
func (s *PhotoVerificationService) Get(ctx context.Context, id string) (*models.VerificationPhoto, error) {
	p, err := s.photos.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load photo: %w", err)
	}
	return p, nil
}

// ListByLoan returns every photo of a loan, newest first.
func (s *PhotoVerificationService) ListByLoan(ctx context.Context, loanID string) ([]models.VerificationPhoto, error) {
	if !models.ValidLoanID(loanID) {
		return nil, utils.ErrInvalidLoanID
	}
	photos, err := s.photos.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

// ListForReview returns one page of photos for the review queue. The filter's page and
// limit are normalized in place.
func (s *PhotoVerificationService) ListForReview(ctx context.Context, f *models.PhotoFilter) ([]models.VerificationPhoto, int, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, 0, utils.ErrInvalidStatus
	}
	if f.LoanID != "" && !models.ValidLoanID(f.LoanID) {
		return nil, 0, utils.ErrInvalidLoanID
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	photos, total, err := s.photos.List(ctx, *f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, total, nil
}

// Delete removes the photo record and its stored object.
func (s *PhotoVerificationService) Delete(ctx context.Context, id string) error {
	key, err := s.photos.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}

	if err := s.objects.DeleteObject(ctx, key); err != nil {
		log.Warn().Err(err).Str("photo_id", id).Str("key", key).Msg("Photo deleted but object removal failed")
	}
	return nil
}

// process downloads the object, extracts EXIF, decides and saves.
func (s *PhotoVerificationService) process(ctx context.Context, p *models.VerificationPhoto) error {
	data, err := s.objects.GetObject(ctx, p.FileKey)
	if err != nil {
		return err
	}

	meta := s.extractor.Extract(data)
	applyExif(p, meta)

	if err := s.decide(ctx, p, meta.HasExif); err != nil {
		return err
	}
	return s.save(ctx, p)
}

// decide sets the verification outcome on p. Without an EXIF block or a browser fix
// there is nothing to verify and the photo is marked metadata_missing.
func (s *PhotoVerificationService) decide(ctx context.Context, p *models.VerificationPhoto, hasExif bool) error {
	if !hasExif && p.BrowserFix() == nil {
		details := verification.Result{
			Status:  verification.StatusMetadataMissing,
			Details: verification.Details{Message: msgMetadataMissing},
		}.VerificationDetails()
		p.VerificationStatus = verification.StatusMetadataMissing
		p.VerificationDetails = &details
		p.GPSMatchConfidence = verification.ConfidenceNone
		p.DistanceExifToBrowserMeters = nil
		p.DistanceExifToPropertyMeters = nil
		p.DistanceBrowserToPropertyMeters = nil
		return nil
	}

	loc, err := s.locations.GetPropertyLocation(ctx, p.LoanID)
	if err != nil {
		return err
	}

	th := s.thresholds
	if loc != nil && loc.GeofenceRadiusMeters > 0 {
		th.PropertyGeofenceMeters = float64(loc.GeofenceRadiusMeters)
	}
	v := verification.NewVerifier(th, verification.WithClock(s.now))

	var exifFix *verification.GPSCoordinates
	if hasExif {
		exifFix = p.ExifFix()
	}
	res := v.Verify(p.BrowserFix(), exifFix, loc.Coordinates(), p.ExifTimestamp)
	p.ApplyResult(res)
	return nil
}

func (s *PhotoVerificationService) save(ctx context.Context, p *models.VerificationPhoto) error {
	if err := s.photos.UpdateVerification(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// reviewed or deleted concurrently
			return utils.ErrPhotoAlreadyReviewed
		}
		return fmt.Errorf("failed to save verification: %w", err)
	}

	log.Info().
		Str("photo_id", p.ID).
		Str("status", string(p.VerificationStatus)).
		Str("confidence", string(p.GPSMatchConfidence)).
		Msg("Photo verified")
	s.publishVerified(p)
	return nil
}

func (s *PhotoVerificationService) recordFailure(ctx context.Context, p *models.VerificationPhoto, cause error) {
	msg := truncateUTF8(cause.Error(), maxErrorLength)
	log.Warn().Err(cause).Str("photo_id", p.ID).Msg("Photo processing failed, left pending")
	if err := s.photos.RecordFailure(ctx, p.ID, msg); err != nil {
		log.Error().Err(err).Str("photo_id", p.ID).Msg("Failed to record processing failure")
	}
}

func (s *PhotoVerificationService) publishVerified(p *models.VerificationPhoto) {
	if s.events != nil {
		s.events.PhotoVerified(p)
	}
}

func (s *PhotoVerificationService) publishReviewed(p *models.VerificationPhoto) {
	if s.events != nil {
		s.events.PhotoReviewed(p)
	}
}

func applyExif(p *models.VerificationPhoto, meta *ExifData) {
	p.ExifExtracted = meta.HasExif
	p.ExifGPSMissing = !meta.HasGPS()
	p.ExifLatitude = meta.Latitude
	p.ExifLongitude = meta.Longitude
	p.ExifAltitude = meta.Altitude
	p.ExifTimestamp = meta.Timestamp
	p.ExifCameraModel = nil
	if meta.CameraModel != "" {
		model := meta.CameraModel
		p.ExifCameraModel = &model
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
