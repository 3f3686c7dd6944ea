package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	handlers "github.com/qe-tools/quality-atlas/pkg/handlers/deviation"
	qualityatlasmiddleware "github.com/qe-tools/quality-atlas/pkg/server/middleware"
	"github.com/qe-tools/quality-atlas/pkg/services/analytics"
	capasvc "github.com/qe-tools/quality-atlas/pkg/services/capa"
	"github.com/qe-tools/quality-atlas/pkg/services/compliance"
	devsvc "github.com/qe-tools/quality-atlas/pkg/services/deviation"
	"github.com/qe-tools/quality-atlas/pkg/services/problem"
)

type Dependencies struct {
	Deviations devsvc.Service
	Actions    capasvc.Service
	Analytics  analytics.Service
	Generator  problem.Generator
	Checker    compliance.Checker
	Logger     zerolog.Logger
}

type Config struct {
	Addr              string
	ShutdownTimeout   time.Duration
	TargetDaysToClose int
	// OnShutdown runs once the server stops accepting requests, on
	// every exit path. Used to stop background schedulers.
	OnShutdown   func()
	Dependencies Dependencies
}

type WebAPI struct {
	router     *chi.Mux
	logger     *zerolog.Logger
	server     *http.Server
	timeout    time.Duration
	onShutdown func()
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router:     router,
		logger:     &logger,
		timeout:    timeout,
		onShutdown: config.OnShutdown,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

func (w *WebAPI) Start() error {
	if w.onShutdown != nil {
		defer w.onShutdown()
	}

	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	handler := handlers.NewHandler(
		deps.Deviations,
		deps.Actions,
		deps.Analytics,
		deps.Generator,
		deps.Checker,
		config.TargetDaysToClose,
	)

	router := chi.NewRouter()

	router.Use(qualityatlasmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/deviations", func(r chi.Router) {
			r.Post("/", handler.CreateDeviation)
			r.Get("/", handler.ListDeviations)
			r.Get("/{id}", handler.GetDeviation)
			r.Patch("/{id}", handler.UpdateDeviation)
			r.Put("/{id}/risk", handler.UpdateRisk)
			r.Post("/{id}/transition", handler.TransitionDeviation)
			r.Post("/{id}/problem-statement", handler.GenerateProblemStatement)
			r.Post("/{id}/compliance-check", handler.RunComplianceCheck)
		})
		r.Route("/capa-actions", func(r chi.Router) {
			r.Post("/", handler.CreateCapaAction)
			r.Get("/", handler.ListCapaActions)
			r.Post("/{id}/transition", handler.TransitionCapaAction)
			r.Delete("/{id}", handler.DeleteCapaAction)
		})
		r.Get("/analytics/snapshot", handler.GetAnalyticsSnapshot)
	})

	return router
}
