package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/coderunner/internal/config"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/execution"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/job"
	"gitlab.com/fcv-2025.net/coderunner/internal/core/services/worker"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers/run"
	"gitlab.com/fcv-2025.net/coderunner/internal/handlers/workers"
)

type ServiceProvider struct {
	workerService    worker.IWorkerRegistrationService
	jobService       job.IJobService
	executionService execution.IExecutionService
	limiter          handlers.RateLimiter
}

// NewServiceProvider bundles the services behind the routes; limiter may be nil
func NewServiceProvider(
	workerService worker.IWorkerRegistrationService,
	jobService job.IJobService,
	executionService execution.IExecutionService,
	limiter handlers.RateLimiter,
) *ServiceProvider {
	return &ServiceProvider{
		workerService:    workerService,
		jobService:       jobService,
		executionService: executionService,
		limiter:          limiter,
	}
}

type Server struct {
	router          http.Handler
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	httpCfg         *config.HttpCfg
	jwtSecret       string
	logger          primary.Logger
	srv             *http.Server
}

func NewServer(httpCfg *config.HttpCfg, jwtCfg *config.JwtConfig, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            httpCfg.Port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		httpCfg:         httpCfg,
		jwtSecret:       jwtCfg.Secret,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.New(s.jwtSecret, s.ServiceProvider.limiter, s.logger)

	workers.NewHandler(s.ServiceProvider.workerService, s.logger).Register(r)
	run.
		NewRunHandler(s.ServiceProvider.jobService, s.ServiceProvider.executionService, s.httpCfg.RequestTimeout, s.logger).
		RegisterRoutes(r, mw)
	r.HandleFunc("/healthz", s.health).Methods("GET")

	// wrap the router so preflight requests never reach route matching
	s.router = cors.Handler(cors.Options{
		AllowedOrigins:   s.httpCfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})(r)
	return nil
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.ServiceName,
	})
}

// Start listens in the background; a bind failure is returned immediately
func (s *Server) Start(ctx context.Context) error {
	// Set up server
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		ReadTimeout: 15 * time.Second,
		// submissions block until settled
		WriteTimeout: s.httpCfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
	}
}
