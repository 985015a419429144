package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/cache"
	"github.com/GTDGit/photoverify_api/internal/config"
	"github.com/GTDGit/photoverify_api/internal/database"
	"github.com/GTDGit/photoverify_api/internal/handler"
	"github.com/GTDGit/photoverify_api/internal/middleware"
	"github.com/GTDGit/photoverify_api/internal/repository"
	"github.com/GTDGit/photoverify_api/internal/service"
	"github.com/GTDGit/photoverify_api/internal/sse"
	"github.com/GTDGit/photoverify_api/internal/verification"
	"github.com/GTDGit/photoverify_api/internal/worker"
	"github.com/GTDGit/photoverify_api/pkg/googlemaps"
)

// main is the application entrypoint for the photo verification API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting photo verification api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.RunMigrations(db.DB, "migrations"); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// Context for workers and graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Object storage
	s3Svc, err := service.NewS3Service(ctx, &cfg.S3, cfg.Photo.MaxBytes)
	if err != nil {
		log.Error().Err(err).Msg("s3 initialization failed")
		fmt.Fprintf(os.Stderr, "s3 initialization failed: %v\n", err)
		os.Exit(1)
	}

	// 5. Repositories
	photoRepo := repository.NewPhotoRepository(db)
	locationRepo := repository.NewPropertyLocationRepository(db)

	// 6. Geocoding (disabled without an API key)
	var geocoder service.Geocoder
	if cfg.Geocoding.APIKey != "" {
		geocoder = googlemaps.NewClient(cfg.Geocoding.APIKey, cfg.Geocoding.BaseURL)
		log.Info().Msg("Google geocoding enabled")
	} else {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set, property geocoding disabled")
	}
	geocodeCache := cache.NewGeocodeCache(redisClient, cfg.Geocoding.CacheTTL)
	geocodingSvc := service.NewGeocodingService(locationRepo, geocoder, geocodeCache, cfg.Photo.DefaultGeofence)

	// 7. Verification
	thresholds := verification.DefaultThresholds()
	thresholds.PropertyGeofenceMeters = float64(cfg.Photo.DefaultGeofence)

	hub := sse.NewHub()
	photoSvc := service.NewPhotoVerificationService(
		photoRepo,
		s3Svc,
		service.NewExifService(),
		geocodingSvc,
		sse.NewHubNotifier(hub),
		thresholds,
	)

	// 8. Initialize handlers
	handlers := &Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Verification:     handler.NewVerificationHandler(thresholds),
		Photo:            handler.NewPhotoHandler(photoSvc),
		AdminPhoto:       handler.NewAdminPhotoHandler(photoSvc),
		PropertyLocation: handler.NewPropertyLocationHandler(geocodingSvc),
		SSE:              handler.NewSSEHandler(hub),
	}

	// 9. Initialize middleware
	middleware.AllowOrigins(cfg.CORSAllowedHosts...)
	uploadLimiter := middleware.NewRateLimiter(redisClient, "upload", cfg.Photo.UploadRatePerMinute, time.Minute)
	go uploadLimiter.Fallback().Cleanup(ctx, time.Minute)

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, uploadLimiter)

	// 11. Start workers
	go worker.NewPendingPhotoWorker(
		photoRepo,
		photoSvc,
		cfg.Worker.PendingPhotoInterval,
		cfg.Worker.PendingPhotoGrace,
		cfg.Worker.PendingPhotoMaxAttempts,
	).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams end when ctx is cancelled on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers and SSE streams
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health           *handler.HealthHandler
	Verification     *handler.VerificationHandler
	Photo            *handler.PhotoHandler
	AdminPhoto       *handler.AdminPhotoHandler
	PropertyLocation *handler.PropertyLocationHandler
	SSE              *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, uploadLimiter *middleware.RateLimiter) {
	v1 := router.Group("/v1")
	v1.GET("/health", handlers.Health.GetHealth)
	v1.GET("/verification/statuses", handlers.Verification.Statuses)

	// Field capture and servicing portal
	loans := v1.Group("/loans/:loanId")
	{
		loans.POST("/photos/upload-url", uploadLimiter.Middleware(), handlers.Photo.CreateUploadURL)
		loans.POST("/photos", uploadLimiter.Middleware(), handlers.Photo.Register)
		loans.GET("/photos", handlers.Photo.ListByLoan)
		loans.GET("/property-location", handlers.PropertyLocation.Get)
		loans.PUT("/property-location", handlers.PropertyLocation.Put)
	}

	photos := v1.Group("/photos/:id")
	{
		photos.GET("", handlers.Photo.Get)
		photos.DELETE("", handlers.Photo.Delete)
		photos.POST("/reverify", handlers.Photo.Reverify)
	}

	// Reviewer queue
	admin := v1.Group("/admin")
	{
		admin.GET("/photos", handlers.AdminPhoto.List)
		admin.PATCH("/photos/:id", handlers.AdminPhoto.Review)
		admin.GET("/sse", handlers.SSE.Stream)
	}
}

// setupLogger configures zerolog global logger based on environment.
func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
