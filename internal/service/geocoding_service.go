package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/cache"
	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/repository"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/pkg/googlemaps"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*googlemaps.GeocodeResult, error)
}

// GeocodeCacher memoizes geocoding results.
type GeocodeCacher interface {
	Get(ctx context.Context, address string) (*googlemaps.GeocodeResult, error)
	Set(ctx context.Context, address string, res *googlemaps.GeocodeResult) error
}

// LocationStore persists property locations.
type LocationStore interface {
	GetByLoanID(ctx context.Context, loanID string) (*models.PropertyLocation, error)
	Upsert(ctx context.Context, loc *models.PropertyLocation) error
}

// GeocodingService resolves and stores the reference location of a loan's property.
type GeocodingService struct {
	repo          LocationStore
	geocoder      Geocoder
	cache         GeocodeCacher
	defaultRadius int
	now           func() time.Time
}

// NewGeocodingService creates a new geocoding service. A nil geocoder disables
// geocoding; a nil cache always calls through to the geocoder.
func NewGeocodingService(repo LocationStore, geocoder Geocoder, cache GeocodeCacher, defaultRadius int) *GeocodingService {
	return &GeocodingService{
		repo:          repo,
		geocoder:      geocoder,
		cache:         cache,
		defaultRadius: defaultRadius,
		now:           time.Now,
	}
}

// GetPropertyLocation returns the stored location for a loan, or nil when none exists.
func (s *GeocodingService) GetPropertyLocation(ctx context.Context, loanID string) (*models.PropertyLocation, error) {
	loc, err := s.repo.GetByLoanID(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load property location: %w", err)
	}
	return loc, nil
}

// GetOrCreatePropertyLocation returns the stored location if present, otherwise geocodes
// the address, persists the result and returns it.
func (s *GeocodingService) GetOrCreatePropertyLocation(ctx context.Context, loanID, address string, radius int) (*models.PropertyLocation, error) {
	if !models.ValidLoanID(loanID) {
		return nil, utils.ErrInvalidLoanID
	}
	existing, err := s.GetPropertyLocation(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.SetPropertyLocation(ctx, loanID, address, radius)
}

// SetPropertyLocation geocodes the address and stores it for the loan, replacing any previous location.
func (s *GeocodingService) SetPropertyLocation(ctx context.Context, loanID, address string, radius int) (*models.PropertyLocation, error) {
	if !models.ValidLoanID(loanID) {
		return nil, utils.ErrInvalidLoanID
	}
	if radius < 0 {
		return nil, utils.ErrInvalidGeofenceRadius
	}
	if radius == 0 {
		radius = s.defaultRadius
	}

	res, err := s.geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	formatted := res.FormattedAddress
	loc := &models.PropertyLocation{
		LoanID:               loanID,
		Latitude:             res.Latitude,
		Longitude:            res.Longitude,
		GeofenceRadiusMeters: radius,
		GeocodedAddress:      &formatted,
		GeocodeSource:        models.GeocodeSourceGoogle,
		GeocodedAt:           &now,
	}
	if err := s.repo.Upsert(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to save property location: %w", err)
	}

	log.Info().
		Str("loan_id", loanID).
		Float64("lat", loc.Latitude).
		Float64("lng", loc.Longitude).
		Msg("Property location geocoded")
	return loc, nil
}

func (s *GeocodingService) geocode(ctx context.Context, address string) (*googlemaps.GeocodeResult, error) {
	if s.geocoder == nil {
		return nil, utils.ErrGeocodingDisabled
	}
	if strings.TrimSpace(address) == "" {
		return nil, utils.ErrAddressNotGeocodable
	}

	if s.cache != nil {
		if res, err := s.cache.Get(ctx, address); err == nil {
			return res, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Msg("Geocode cache read failed")
		}
	}

	res, err := s.geocoder.Geocode(ctx, address)
	if errors.Is(err, googlemaps.ErrNoResults) {
		return nil, utils.ErrAddressNotGeocodable
	}
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, address, res); err != nil {
			log.Warn().Err(err).Msg("Geocode cache write failed")
		}
	}
	return res, nil
}
