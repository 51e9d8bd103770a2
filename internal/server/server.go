package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agriland/marketplace/config"
	"github.com/agriland/marketplace/internal/db"
	"github.com/agriland/marketplace/internal/handlers"
	"github.com/agriland/marketplace/internal/logging"
	"github.com/agriland/marketplace/internal/mq"
	"github.com/agriland/marketplace/internal/services"
	"github.com/agriland/marketplace/internal/storage"
	"github.com/agriland/marketplace/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	db         *sql.DB
	mongo      *mongo.Client
	blobs      *storage.Storage
	queue      *mq.MQ
}

// repositories is the persistence backend selected by DB_BACKEND.
type repositories struct {
	users    services.UserRepository
	listings services.ListingRepository
	health   func(ctx context.Context) error
}

// New constructs a Server with basic middleware and defaults. A nil logger
// is replaced by one built from cfg.Log.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Log); err != nil {
			return nil, err
		}
	}

	s := &Server{logger: logger}
	repos, err := s.openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s.blobs, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	s.queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("open message queue: %w", err)
	}

	listingOpts := []services.ListingOption{services.WithBlobRemover(s.blobs)}
	if s.queue != nil {
		listingOpts = append(listingOpts, services.WithEventPublisher(s.queue, cfg.MQ.ListingsTopic))
	}

	userService := services.NewUserService(repos.users, cfg.Auth.BcryptCost)
	sessionIssuer := services.NewSessionIssuer(repos.users, cfg.Auth.JWTSecret)
	listingService := services.NewListingService(repos.listings, repos.users, logger, listingOpts...)
	relationService := services.NewRelationService(repos.users, repos.listings)

	authMiddleware := handlers.RequireAuth(sessionIssuer)
	authHandler := handlers.NewAuthHandler(userService, sessionIssuer, logger)
	listingHandler := handlers.NewListingHandler(listingService, userService, s.blobs, logger)
	relationHandler := handlers.NewRelationHandler(relationService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Health(repos.health))
	router.Get(storage.RefPrefix+"*", handlers.Uploads(s.blobs, logger))
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, authMiddleware)
		handlers.ListingRouter(r, listingHandler, authMiddleware)
		handlers.RelationRouter(r, relationHandler, authMiddleware)
	})
	s.router = router

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.DBBackend {
	case config.DBBackendPostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		s.db = dbConn
		return repositories{
			users:    store.NewUserRepository(dbConn),
			listings: store.NewListingRepository(dbConn),
			health:   dbConn.PingContext,
		}, nil
	case config.DBBackendMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return repositories{}, fmt.Errorf("open mongo: %w", err)
		}
		s.mongo = client
		return repositories{
			users:    store.NewMongoUserRepository(database),
			listings: store.NewMongoListingRepository(database),
			health: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
		}, nil
	case config.DBBackendMemory:
		mem := store.NewMemoryStore()
		s.logger.Warn("using in-memory store; data is lost on restart")
		return repositories{users: mem.Users(), listings: mem.Listings()}, nil
	default:
		return repositories{}, fmt.Errorf("unsupported db backend %q", cfg.DBBackend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil once Shutdown has been called.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done and then releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.closeBackends())
}

func (s *Server) closeBackends() error {
	var errs []error
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.blobs != nil {
		errs = append(errs, s.blobs.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.mongo != nil {
		errs = append(errs, s.mongo.Disconnect(context.Background()))
	}
	return errors.Join(errs...)
}
