// Package server wires configuration, storage, queue, workers and HTTP
// routes into a runnable service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/ailogo/internal/auth"
	"github.com/sakif/ailogo/internal/config"
	"github.com/sakif/ailogo/internal/generator"
	"github.com/sakif/ailogo/internal/handler"
	"github.com/sakif/ailogo/internal/imaging"
	"github.com/sakif/ailogo/internal/middleware"
	"github.com/sakif/ailogo/internal/payment"
	"github.com/sakif/ailogo/internal/queue"
	sqliteRepo "github.com/sakif/ailogo/internal/repository/sqlite"
	"github.com/sakif/ailogo/internal/service"
	"github.com/sakif/ailogo/internal/storage"
	"github.com/sakif/ailogo/internal/worker"
)

type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger

	db    *sqliteRepo.DB
	queue queue.Queue
	pool  *worker.Pool
	files http.Handler // set for local storage only

	// closers run on shutdown, after the workers have stopped.
	closers []func() error
}

// New builds every dependency from cfg. Nothing runs until Start.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		closers: []func() error{db.Close},
	}

	if err := s.setup(context.Background()); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) setup(ctx context.Context) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}

	store, err := s.newStore(ctx)
	if err != nil {
		return err
	}
	jobs, err := s.newQueue(ctx)
	if err != nil {
		return err
	}
	s.queue = jobs
	gen, err := s.newGenerator()
	if err != nil {
		return err
	}
	templates, err := imaging.LoadTemplates(cfg.TemplateDir, imaging.DefaultTemplateNames)
	if err != nil {
		return fmt.Errorf("loading mockup templates: %w", err)
	}

	var checkout payment.Checkout
	if cfg.StripeSecretKey != "" {
		if checkout, err = payment.NewStripe(cfg.StripeSecretKey); err != nil {
			return err
		}
	} else {
		s.logger.Warn("STRIPE_SECRET_KEY not set; checkout is disabled")
	}

	ledger := service.NewCreditLedger(s.db, s.db, service.CreditConfig{
		BaseCredits:       cfg.BaseCredits,
		Policy:            service.CreditPolicy(cfg.CreditPolicy),
		RequirePaidOrders: cfg.CreditsRequirePaid,
	}, s.logger)
	users := service.NewUserService(s.db, ledger, cfg.IsSuperUser, s.logger)
	gallery := service.NewGalleryService(s.db, s.logger)
	logos := service.NewLogoService(s.db, users, ledger, gallery, jobs, service.GenerationConfig{
		DefaultModel:   cfg.DefaultModel,
		DefaultSize:    cfg.DefaultSize,
		DefaultQuality: cfg.DefaultQuality,
		DefaultStyle:   cfg.DefaultStyle,
		Timeout:        cfg.GenerationTimeout,
		PollInterval:   cfg.PollInterval,
	}, s.logger)
	orders := service.NewOrderService(s.db, users, checkout, nil, cfg.AppURL, s.logger)
	authSvc := service.NewAuthService(users, tokens, s.logger)
	remover := service.NewBackgroundRemover(cfg.RemoveBgURL, nil, s.logger)

	runner := service.NewGenerationRunner(s.db, gen, store, templates, nil, s.logger)
	s.pool = worker.NewPool(jobs, runner, worker.Config{
		Size:       cfg.WorkerCount,
		JobTimeout: cfg.GenerationTimeout,
	}, s.logger)

	github := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	secure := strings.HasPrefix(cfg.AppURL, "https://")

	s.routes(
		tokens,
		handler.NewAuthHandler(github, authSvc, secure, s.logger),
		handler.NewLogoHandler(logos, gallery, s.logger),
		handler.NewUserHandler(users, s.logger),
		handler.NewOrderHandler(orders, s.logger),
		handler.NewRemoveBGHandler(remover, s.logger),
		handler.NewHealthHandler(s.db, s.logger),
	)
	return nil
}

func (s *Server) newStore(ctx context.Context) (storage.Store, error) {
	switch s.config.StorageBackend {
	case "gcs":
		gcs, err := storage.NewGCS(ctx, s.config.GCSBucket, s.config.CDNBaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, gcs.Close)
		return gcs, nil
	default:
		local, err := storage.NewLocal(s.config.StorageDir, s.config.CDNBaseURL)
		if err != nil {
			return nil, err
		}
		s.files = local.Handler()
		return local, nil
	}
}

func (s *Server) newQueue(ctx context.Context) (queue.Queue, error) {
	switch s.config.QueueBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     s.config.RedisAddr,
			Password: s.config.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", s.config.RedisAddr, err)
		}
		s.closers = append(s.closers, client.Close)
		return queue.NewRedis(client, s.config.RedisQueueKey), nil
	default:
		return queue.NewMemory(256), nil
	}
}

func (s *Server) newGenerator() (generator.Generator, error) {
	switch s.config.Generator {
	case "mock":
		s.logger.Warn("using mock image generator")
		return &generator.Mock{}, nil
	default:
		return generator.NewOpenAI(generator.OpenAIConfig{
			BaseURL:    s.config.OpenAIBaseURL,
			APIKey:     s.config.OpenAIAPIKey,
			MaxRetries: 2,
		}, s.logger)
	}
}

func (s *Server) routes(
	tokens *auth.TokenService,
	authH *handler.AuthHandler,
	logoH *handler.LogoHandler,
	userH *handler.UserHandler,
	orderH *handler.OrderHandler,
	removeH *handler.RemoveBGHandler,
	healthH *handler.HealthHandler,
) {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))

	r.Get("/healthz", healthH.HandleHealth)
	if s.files != nil {
		r.Handle("/files/*", http.StripPrefix("/files/", s.files))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authH.HandleGitHubLogin)
		r.Get("/github/callback", authH.HandleGitHubCallback)
		r.Post("/logout", authH.HandleLogout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/get-public-logos", logoH.HandlePublicLogos)
		r.Post("/get-plans", orderH.HandlePlans)
		r.Get("/payment/success", orderH.HandlePaymentSuccess)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Post("/generate-logo", logoH.HandleGenerate)
			r.Post("/regenerate-logo", logoH.HandleRegenerate)
			r.Post("/check-logo-status", logoH.HandleCheckStatus)
			r.Post("/toggle-logo-publicity", logoH.HandleTogglePublicity)
			r.Post("/get-user-logos", logoH.HandleUserLogos)
			r.Post("/get-user-info", userH.HandleUserInfo)
			r.Post("/get-user-orders", orderH.HandleUserOrders)
			r.Post("/create-checkout", orderH.HandleCreateCheckout)
			r.Post("/remove-background", removeH.HandleRemoveBackground)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the workers and the HTTP server until SIGINT or SIGTERM, then
// shuts both down gracefully.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // remove-background waits on upstream
		IdleTimeout:  60 * time.Second,
	}

	s.pool.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.AppURL),
			slog.String("database", s.config.DBPath),
			slog.String("queue", s.config.QueueBackend),
			slog.String("storage", s.config.StorageBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// close stops the workers, then releases resources in reverse order of
// acquisition.
func (s *Server) close() {
	if s.pool != nil {
		if s.queue != nil {
			s.queue.Close()
		}
		s.pool.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("closing resource", slog.String("error", err.Error()))
		}
	}
}
