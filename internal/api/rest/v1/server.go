// Package rest provides functionality for initializing a server.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/handlers"
	"github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/middleware"
	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	processorIface "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/processor"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/reviewer/v1/reviewer"
	secretaryIface "github.com/danilovkiri/dk-go-paydesk/internal/service/secretary/v1"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/secretary/v1/secretary"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/inmemory"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/inpsql"
	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// InitServer returns a http.Server object ready to be listening and serving and a function
// releasing the storage it uses.
func InitServer(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (server *http.Server, closeStorage func() error, err error) {
	// initialize secretary
	secretaryService, err := secretary.NewSecretaryService(cfg.SecretConfig)
	if err != nil {
		return nil, nil, err
	}

	// initialize storage
	var st storage.Storage
	closeStorage = func() error { return nil }
	if cfg.StorageConfig.DatabaseDSN != "" {
		psql, err := inpsql.InitStorage(ctx, cfg.StorageConfig, log)
		if err != nil {
			return nil, nil, err
		}
		st, closeStorage = psql, psql.Close
	} else {
		st = inmemory.InitStorage(log)
	}

	// initialize main service
	mainService, err := processor.InitService(st, secretaryService, log)
	if err != nil {
		_ = closeStorage()
		return nil, nil, err
	}

	// seed administrator
	if cfg.AdminConfig.Login != "" {
		admin := modeldto.User{Login: cfg.AdminConfig.Login, Password: cfg.AdminConfig.Password}
		if err := mainService.EnsureAdmin(ctx, admin); err != nil {
			_ = closeStorage()
			return nil, nil, err
		}
	}

	r, err := NewRouter(mainService, secretaryService, cfg.ServerConfig, log)
	if err != nil {
		_ = closeStorage()
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         cfg.ServerConfig.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, closeStorage, nil
}

// NewRouter wires handlers, middleware and routes.
func NewRouter(mainService processorIface.Processor, sec secretaryIface.Secretary, cfg *config.ServerConfig, log *zerolog.Logger) (http.Handler, error) {
	// initialize token handler
	tokenHandler, err := middleware.NewTokenHandler(sec)
	if err != nil {
		return nil, err
	}

	// initialize review desk over the in-process service
	desk, err := reviewer.NewController(mainService, log)
	if err != nil {
		return nil, err
	}

	// initialize handlers
	urlHandler, err := handlers.InitHandlers(mainService, desk, log)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(hlog.NewHandler(*log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("url", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request served")
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Authorization"},
		MaxAge:         300,
	}))
	r.Use(middleware.MetricsHandle)
	r.MethodNotAllowed(urlHandler.HandleMethodNotAllowed())
	r.NotFound(urlHandler.HandleNotFound())

	r.Get("/api/health", urlHandler.HandleHealth())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/user/register", urlHandler.HandleRegister())
	r.Post("/api/user/login", urlHandler.HandleLogin())

	r.Group(func(userGroup chi.Router) {
		userGroup.Use(tokenHandler.TokenHandle)
		userGroup.Get("/api/user/balance", urlHandler.HandleGetBalance())
		userGroup.Get("/api/user/transactions", urlHandler.HandleGetTransactions())
		userGroup.Post("/api/user/payments", urlHandler.HandleNewPaymentRequest())
		userGroup.Get("/api/user/payments", urlHandler.HandleGetPaymentRequests())

		userGroup.Group(func(adminGroup chi.Router) {
			adminGroup.Use(tokenHandler.AdminHandle)
			adminGroup.Get("/api/admin/payments/pending", urlHandler.HandleGetPending())
			adminGroup.Post("/api/admin/payments/{id}/approve", urlHandler.HandleApprove())
			adminGroup.Post("/api/admin/payments/{id}/reject", urlHandler.HandleReject())
			adminGroup.Patch("/api/admin/payments/{id}", urlHandler.HandlePatch())
			adminGroup.Delete("/api/admin/payments/{id}", urlHandler.HandleDelete())
		})
	})
	return r, nil
}
