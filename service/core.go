// Package service implements the intermediary that fronts a
// distributed store for clients with no direct access to it.  It
// exposes the store's objects over HTTP; table semantics (shard
// layout, headers) live entirely in the client.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stratadb/strata/pkg/storage"
	"go.uber.org/zap"
)

type Config struct {
	// Root is the base URI of the distributed store this service
	// fronts; object paths resolve beneath it.
	Root *storage.URI
	// Engine overrides the storage engine; by default a local-engine
	// router is used so file and s3 roots both work.
	Engine storage.Engine
	Logger *zap.Logger
}

type Core struct {
	engine   storage.Engine
	root     *storage.URI
	logger   *zap.Logger
	registry *prometheus.Registry
	router   *mux.Router

	objectsWritten prometheus.Counter
	bytesWritten   prometheus.Counter
}

func NewCore(ctx context.Context, conf Config) (*Core, error) {
	if conf.Root == nil || conf.Root.IsZero() {
		return nil, errors.New("service: no store root configured")
	}
	engine := conf.Engine
	if engine == nil {
		engine = storage.NewLocalEngine()
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	c := &Core{
		engine:   engine,
		root:     conf.Root,
		logger:   logger.Named("service"),
		registry: registry,
		objectsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "objects_written_total",
			Help: "Number of objects written into the store",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "object_bytes_written_total",
			Help: "Number of object bytes written into the store",
		}),
	}
	registry.MustRegister(c.objectsWritten, c.bytesWritten)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	objects := router.PathPrefix("/objects").Subrouter()
	objects.HandleFunc("/{path:.*}", c.handleGet).Methods(http.MethodGet)
	objects.HandleFunc("/{path:.*}", c.handleHead).Methods(http.MethodHead)
	objects.HandleFunc("/{path:.*}", c.handlePut).Methods(http.MethodPut, http.MethodPost)
	objects.HandleFunc("/{path:.*}", c.handleDelete).Methods(http.MethodDelete)
	c.router = router
	return c, nil
}

func (c *Core) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

func (c *Core) Registry() *prometheus.Registry {
	return c.registry
}
