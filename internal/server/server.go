package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ahmadmdabit/MeetingSystem-sub001/config"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/db"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/handlers"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/mq"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/scheduler"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/services"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/storage"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and its backing connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
	sched      *scheduler.TimerScheduler
}

// New constructs a Server with all repositories, services, and routes wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	roleRepo := store.NewRoleRepository(dbConn)
	meetingRepo := store.NewMeetingRepository(dbConn)
	fileRepo := store.NewFileRepository(dbConn)
	tokenRepo := store.NewTokenRepository(dbConn)

	// The role catalog is fixed; seeding is idempotent and runs every start.
	if err := roleRepo.Ensure(ctx, types.RoleAdmin, types.RoleUser); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	meetingFiles, err := NewObjectStorage(ctx, cfg, cfg.Storage.MeetingFilesBucket)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	profilePictures, err := NewObjectStorage(ctx, cfg, cfg.Storage.ProfilePicturesBucket)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	for _, s := range []storage.ObjectStorage{meetingFiles, profilePictures} {
		if err := s.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ensure bucket %s: %w", s.Bucket(), err)
		}
	}

	broker, err := NewMQBackend(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	sched := scheduler.NewTimerScheduler(broker, logger)

	userService := services.NewUserService(userRepo, roleRepo, profilePictures)
	fileService := services.NewFileService(
		fileRepo,
		meetingRepo,
		meetingFiles,
		cfg.Upload.MaxBytes,
		cfg.Upload.GzipThresholdBytes,
		logger,
	)
	meetingService := services.NewMeetingService(
		meetingRepo,
		userRepo,
		fileService,
		sched,
		cfg.Reminder.Offset,
		logger,
	)

	authHandler := handlers.NewAuthHandler(userService, tokenRepo, cfg.JWT.Secret, cfg.JWT.TokenTTL)
	meetingHandler := handlers.NewMeetingHandler(meetingService, fileService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", authHandler.AuthRouter)
	router.Route("/meetings", func(r chi.Router) {
		r.Use(authHandler.RequireAuth)
		meetingHandler.MeetingRouter(r)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		sched:      sched,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// NewObjectStorage selects the configured object-store backend for a bucket.
func NewObjectStorage(ctx context.Context, cfg config.Config, bucket string) (storage.ObjectStorage, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "minio":
		return storage.NewMinioClient(cfg.Storage.Minio, bucket)
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.Storage.GCS, bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewMQBackend selects the configured message broker.
func NewMQBackend(ctx context.Context, cfg config.Config) (mq.Backend, error) {
	switch strings.ToLower(cfg.MQ.Backend) {
	case "", "rabbitmq":
		return mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}
