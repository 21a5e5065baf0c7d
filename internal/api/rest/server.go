// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/api/rest/handlers"
	"github.com/danilovkiri/dk-go-donations/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-donations/internal/client/openpayments"
	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/metrics"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-donations/internal/service/broker"
	"github.com/danilovkiri/dk-go-donations/internal/service/orchestrator/orchestrator"
	"github.com/danilovkiri/dk-go-donations/internal/service/processor/processor"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/storage"
	"github.com/danilovkiri/dk-go-donations/internal/storage/inmem"
	"github.com/danilovkiri/dk-go-donations/internal/storage/inpsql"
	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Router collects what NewRouter mounts.
type Router struct {
	Handler *handlers.Handler
	Tokens  *middleware.TokenHandler
	Limiter *middleware.RateLimiter
	Metrics http.Handler
	Config  *config.ServerConfig
	Log     *zerolog.Logger
}

// InitServer returns a http.Server object ready to be listening and serving.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger, wg *sync.WaitGroup) (server *http.Server, err error) {
	// initialize storage
	mainStorage, states, err := initStorage(ctx, cfg.StorageConfig, log, wg)
	if err != nil {
		return nil, err
	}

	// initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig, cfg.ServerConfig.IsProduction())
	if err != nil {
		return nil, err
	}

	// initialize payment authority client
	signer, err := openpayments.LoadSigner(cfg.PaymentsConfig.PrivateKeyPath, cfg.PaymentsConfig.KeyID)
	if err != nil {
		return nil, err
	}
	authorityClient := openpayments.InitClient(cfg.PaymentsConfig, signer, cfg.ServerConfig.AuthorityTimeout, log)

	// initialize metrics and event broker
	donationMetrics := metrics.NewDonationMetrics()
	brokerService := broker.InitBroker(ctx, cfg.QueueConfig, broker.NewWriter(cfg.QueueConfig, log), donationMetrics, log, wg)
	brokerService.ListenAndProcess()

	// initialize main services
	mainService, err := processor.InitService(mainStorage, secretaryService, log)
	if err != nil {
		return nil, err
	}
	donationService, err := orchestrator.InitOrchestrator(mainStorage, states, authorityClient, brokerService, donationMetrics, log)
	if err != nil {
		return nil, err
	}

	// initialize handlers and middleware
	urlHandler, err := handlers.InitHandlers(mainService, donationService, cfg.ServerConfig, log)
	if err != nil {
		return nil, err
	}
	tokenHandler, err := middleware.NewTokenHandler(mainService, log)
	if err != nil {
		return nil, err
	}

	r := NewRouter(Router{
		Handler: urlHandler,
		Tokens:  tokenHandler,
		Limiter: middleware.NewRateLimiter(cfg.ServerConfig.AuthRatePerMinute),
		Metrics: donationMetrics.Handler(),
		Config:  cfg.ServerConfig,
		Log:     log,
	})

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}

// NewRouter sets routing.
func NewRouter(rt Router) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{rt.Config.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := rt.Handler
	r.Get("/health", h.HandleHealth())
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.Limiter.Limit)
			r.Post("/auth/register", h.HandleRegister())
			r.Post("/auth/login", h.HandleLogin())
		})
		r.Post("/auth/logout", h.HandleLogout())
		r.Get("/users/{id}", h.HandleGetProfile())
		r.Get("/usersSearch/searchProfile", h.HandleSearchProfiles())

		// authentication is not required for the routes above
		r.Group(func(r chi.Router) {
			r.Use(rt.Tokens.TokenHandle)
			r.Get("/auth/me", h.HandleMe())
			r.Get("/wallets", h.HandleListWallets())
			r.Post("/wallets", h.HandleAddWallet())
			r.Route("/donations", func(r chi.Router) {
				r.Get("/wallet/{walletId}", h.HandleWalletInfo())
				r.Post("/initiate", h.HandleInitiate())
				r.Get("/history", h.HandleHistory())
				r.Get("/stats", h.HandleStats())
				r.Post("/{donationId}/create-quote", h.HandleCreateQuote())
				r.Post("/{donationId}/request-grant", h.HandleRequestGrant())
				r.Post("/{donationId}/complete", h.HandleComplete())
			})
			r.With(middleware.RequireUserType(modelstorage.UserTypeAdmin)).
				Put("/admin/users/{id}/verification", h.HandleSetVerification())
		})
	})
	return r
}

// initStorage falls back to process memory when no database is configured.
func initStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger, wg *sync.WaitGroup) (storage.Storage, storage.States, error) {
	if cfg.DatabaseDSN == "" {
		log.Warn().Msg("no database configured, using in-memory storage")
		return inmem.NewStorage(), inmem.NewStateStore(), nil
	}
	st, err := inpsql.InitStorage(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("closing PSQL DB connection failed")
			return
		}
		log.Info().Msg("PSQL DB connection was closed")
	}()
	if cfg.StateStore == "memory" {
		log.Info().Msg("donation states are kept in memory")
		return st, inmem.NewStateStore(), nil
	}
	return st, inpsql.NewStateStore(st), nil
}
