package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Options struct {
	Addr           string
	ExposeMetrics  bool
	Gatherer       prometheus.Gatherer // nil — глобальный реестр
	AllowedOrigins []string
	Log            *slog.Logger
}

type Server struct {
	srv *http.Server
}

// New собирает роутер: /health, /metrics и JSON API, если api не nil.
func New(opts Options, api *API) *Server {
	return &Server{srv: &http.Server{
		Addr:              opts.Addr,
		Handler:           Handler(opts, api),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func Handler(opts Options, api *API) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(opts.Log))

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if opts.ExposeMetrics {
		if opts.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	if api != nil {
		api.routes(r.PathPrefix("/api").Subrouter())
	}

	co := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
	})
	return co.Handler(r)
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
