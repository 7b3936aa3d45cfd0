package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopadmin/apiserver/config"
	"github.com/shopadmin/apiserver/internal/auth"
	"github.com/shopadmin/apiserver/internal/db"
	"github.com/shopadmin/apiserver/internal/handlers"
	"github.com/shopadmin/apiserver/internal/metrics"
	"github.com/shopadmin/apiserver/internal/mq"
	"github.com/shopadmin/apiserver/internal/oauth"
	"github.com/shopadmin/apiserver/internal/ratelimit"
	"github.com/shopadmin/apiserver/internal/services"
	"github.com/shopadmin/apiserver/internal/storage"
	"github.com/shopadmin/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router, and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	redis      *redis.Client
	events     *mq.EventBus
	logger     *zap.Logger
}

// New connects every configured backend and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *Server, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger}
	defer func() {
		if err != nil {
			s.closeBackends()
		}
	}()

	if s.db, err = db.Open(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if s.redis, err = ratelimit.NewRedisClient(ctx, cfg.Redis); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.SessionMaxAge)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SECRET: %w", err)
	}
	gate, err := auth.NewPathGate(cfg.Auth.ProtectedPaths, cfg.Auth.SignInPath)
	if err != nil {
		return nil, fmt.Errorf("PROTECTED_PATHS: %w", err)
	}
	providers, err := oauth.New(ctx, cfg.OAuth)
	if err != nil {
		return nil, fmt.Errorf("oauth providers: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	authMetrics, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(s.db)
	hasher := auth.NewBcryptHasher()
	opts := []auth.Option{
		auth.WithObserver(authMetrics),
		auth.WithLogger(logger.Named("auth")),
		auth.WithProviderSwitch(cfg.Auth.AllowProviderSwitch),
	}
	if throttle := ratelimit.New(cfg.Auth, s.redis); throttle != nil {
		opts = append(opts, auth.WithThrottle(throttle))
	}

	backend, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		return nil, fmt.Errorf("mq backend: %w", err)
	}
	if backend != nil {
		s.events = mq.NewEventBus(backend, cfg.MQ.EventsTopic, logger.Named("mq"))
		opts = append(opts, auth.WithEvents(s.events))
	}
	authService := auth.NewService(userRepo, hasher, opts...)

	var pictures services.PictureStore
	objects, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage backend: %w", err)
	}
	if objects != nil {
		if err := objects.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		pictures = storage.NewPictures(objects)
	}

	userService := services.NewUserService(userRepo, authService, hasher, pictures, logger.Named("users"))
	categoryService := services.NewCategoryService(store.NewCategoryRepository(s.db))
	statusService := services.NewStatusService(store.NewStatusRepository(s.db))

	authHandler := handlers.NewAuthHandler(authService, issuer, providers, cfg.Auth, logger.Named("auth"))
	userHandler := handlers.NewUserHandler(userService, logger)
	categoryHandler := handlers.NewCategoryHandler(categoryService, logger)
	statusHandler := handlers.NewStatusHandler(statusService, logger)
	sessions := handlers.NewSessionMiddleware(issuer, cfg.Auth.SessionCookie, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	if cfg.MetricsEnabled {
		router.Handle("/metrics", authMetrics.Handler())
	}
	router.Group(func(r chi.Router) {
		r.Use(sessions.Load, handlers.Gate(gate))

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(handlers.RequireAdmin)
			r.Route("/users", func(r chi.Router) {
				handlers.AdminUserRouter(r, userHandler)
			})
			r.Route("/categories", func(r chi.Router) {
				handlers.CategoryRouter(r, categoryHandler)
			})
			r.Route("/statuses", func(r chi.Router) {
				handlers.StatusRouter(r, statusHandler)
			})
		})
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, userHandler)
		})
		r.Route("/profile", func(r chi.Router) {
			handlers.ProfileRouter(r, userHandler)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		zap.Int("port", port),
		zap.Strings("oauth_providers", providers.Names()),
		zap.Bool("redis", s.redis != nil),
		zap.Bool("events", s.events != nil),
		zap.Bool("pictures", pictures != nil),
	)
	return s, nil
}

// Router exposes the chi router so callers can walk or extend the mounted routes.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

func (s *Server) closeBackends() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.Warn("close event bus", zap.Error(err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
