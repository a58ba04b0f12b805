// Package server exposes the projection engine and the record store over a
// small HTTP API. All numerical work happens in the engine packages; the
// server only translates between JSON records and engine shapes.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openreserve/reserve-forecast/internal/config"
	"github.com/openreserve/reserve-forecast/internal/optimizer"
	"github.com/openreserve/reserve-forecast/internal/projection"
	"github.com/openreserve/reserve-forecast/internal/store"
	"github.com/openreserve/reserve-forecast/pkg/investments"
	"github.com/openreserve/reserve-forecast/pkg/optimization"
	"github.com/openreserve/reserve-forecast/pkg/output"
)

// Server routes API requests to the engine and the record store.
type Server struct {
	logger       *zap.Logger
	store        *store.Store
	maxBodyBytes int64
	metrics      bool
}

// New constructs a Server. The store may be nil, in which case the record
// endpoints respond 503 and the stateless compute endpoints keep working.
func New(logger *zap.Logger, st *store.Store, cfg config.ServerConfig) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:       logger,
		store:        st,
		maxBodyBytes: cfg.MaxBodyBytes,
		metrics:      cfg.Metrics,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/project", s.handleProject)
		r.Post("/optimize", s.handleOptimize)
		r.Post("/rate", s.handleRate)

		r.Post("/associations", s.handleCreateAssociation)
		r.Get("/associations", s.handleListAssociations)
		r.Get("/associations/{id}/models", s.handleListModels)
		r.Post("/associations/{id}/models", s.handleCreateModel)

		r.Get("/models/{id}", s.handleGetModel)
		r.Get("/models/{id}/items", s.handleListItems)
		r.Post("/models/{id}/items", s.handleCreateItem)
		r.Delete("/items/{id}", s.handleDeleteItem)

		r.Get("/models/{id}/projection", s.handleModelProjection)
		r.Post("/models/{id}/optimize", s.handleModelOptimize)
		r.Get("/models/{id}/export", s.handleModelExport)
	})

	return r
}

type projectRequest struct {
	Model config.ModelParameters `json:"model"`
	Items []config.LineItem      `json:"items"`
	Fees  []float64              `json:"fees"`
}

type projectResponse struct {
	Projections []projection.YearProjection `json:"projections"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !s.decode(w, r, "project", &req) {
		return
	}

	conf, warnings, err := s.prepare(req.Model, req.Items)
	if err != nil {
		s.fail(w, "project", http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	projections := projection.Project(s.logger, conf.Model, conf.ScheduleItems(), projection.FeeSchedule(req.Fees))
	observeSimulation(start)

	requestsTotal.WithLabelValues("project", "ok").Inc()
	s.writeJSON(w, http.StatusOK, projectResponse{Projections: projections, Warnings: warnings})
}

type optimizeRequest struct {
	Model            config.ModelParameters `json:"model"`
	Items            []config.LineItem      `json:"items"`
	TargetMinBalance float64                `json:"targetMinBalance"`
}

type optimizeResponse struct {
	Summary     optimization.Summary        `json:"summary"`
	Projections []projection.YearProjection `json:"projections"`
	Params      config.ModelParameters      `json:"optimizedParams"`
	Warnings    []string                    `json:"warnings,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !s.decode(w, r, "optimize", &req) {
		return
	}

	conf, warnings, err := s.prepare(req.Model, req.Items)
	if err != nil {
		s.fail(w, "optimize", http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result := optimizer.OptimizeFees(s.logger, conf.Model, conf.ScheduleItems(), req.TargetMinBalance)
	observeSimulation(start)

	requestsTotal.WithLabelValues("optimize", "ok").Inc()
	s.writeJSON(w, http.StatusOK, optimizeResponse{
		Summary:     result.Summary,
		Projections: result.Projections,
		Params:      result.OptimizedParams,
		Warnings:    warnings,
	})
}

type rateRequest struct {
	Series    []float64                `json:"series"`
	StartYear int                      `json:"startYear"`
	Strategy  investments.RateStrategy `json:"strategy"`
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !s.decode(w, r, "rate", &req) {
		return
	}

	rate := investments.WeightedRate(req.Series, req.StartYear, req.Strategy)
	balances := investments.AccumulateFunds(req.Series, req.StartYear, req.Strategy)

	requestsTotal.WithLabelValues("rate", "ok").Inc()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weightedRatePct": rate,
		"balances":        balances,
	})
}

func (s *Server) handleCreateAssociation(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "associations") {
		return
	}
	var a store.Association
	if !s.decode(w, r, "associations", &a) {
		return
	}
	created, err := s.store.CreateAssociation(a)
	if err != nil {
		s.fail(w, "associations", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAssociations(w http.ResponseWriter, _ *http.Request) {
	if !s.requireStore(w, "associations") {
		return
	}
	list, err := s.store.ListAssociations()
	if err != nil {
		s.fail(w, "associations", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "models") {
		return
	}
	var m store.Model
	if !s.decode(w, r, "models", &m) {
		return
	}
	m.AssociationID = chi.URLParam(r, "id")

	conf := config.Configuration{Model: m.Params}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		s.fail(w, "models", http.StatusBadRequest, err)
		return
	}

	created, err := s.store.CreateModel(m)
	if err != nil {
		s.fail(w, "models", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "models") {
		return
	}
	list, err := s.store.ListModels(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "models", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "models") {
		return
	}
	m, err := s.store.GetModel(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "models", http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "items") {
		return
	}
	items, err := s.store.ListLineItems(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "items", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "items") {
		return
	}
	var item config.LineItem
	if !s.decode(w, r, "items", &item) {
		return
	}
	created, err := s.store.CreateLineItem(chi.URLParam(r, "id"), item)
	if err != nil {
		s.fail(w, "items", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "items") {
		return
	}
	if err := s.store.DeleteLineItem(chi.URLParam(r, "id")); err != nil {
		s.fail(w, "items", http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleModelProjection runs the engine over a stored model.
func (s *Server) handleModelProjection(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "model-projection") {
		return
	}
	conf, err := s.loadModelConfig(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "model-projection", http.StatusNotFound, err)
		return
	}

	fees := projection.Uniform(conf.Model.MonthlyFee, conf.Model.HorizonYears)
	start := time.Now()
	projections := projection.Project(s.logger, conf.Model, conf.ScheduleItems(), fees)
	observeSimulation(start)

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		output.CsvProjection(w, projections)
		requestsTotal.WithLabelValues("model-projection", "ok").Inc()
		return
	}

	requestsTotal.WithLabelValues("model-projection", "ok").Inc()
	s.writeJSON(w, http.StatusOK, projectResponse{Projections: projections})
}

type modelOptimizeRequest struct {
	Accept bool `json:"accept"`
}

// handleModelOptimize optimizes a stored model and, when accepted, writes the
// optimized fee back into the record.
func (s *Server) handleModelOptimize(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "model-optimize") {
		return
	}
	id := chi.URLParam(r, "id")
	conf, err := s.loadModelConfig(id)
	if err != nil {
		s.fail(w, "model-optimize", http.StatusNotFound, err)
		return
	}

	var req modelOptimizeRequest
	if !s.decode(w, r, "model-optimize", &req) {
		return
	}

	start := time.Now()
	result := optimizer.OptimizeFees(s.logger, conf.Model, conf.ScheduleItems(), conf.Model.TargetMinBalance)
	observeSimulation(start)

	if req.Accept {
		if err := s.store.WriteBackOptimizedFee(id, result.OptimizedParams.MonthlyFee); err != nil {
			s.fail(w, "model-optimize", http.StatusInternalServerError, err)
			return
		}
	}

	requestsTotal.WithLabelValues("model-optimize", "ok").Inc()
	s.writeJSON(w, http.StatusOK, optimizeResponse{
		Summary:     result.Summary,
		Projections: result.Projections,
		Params:      result.OptimizedParams,
	})
}

// handleModelExport serializes a stored model and its items as a YAML
// configuration file the CLI accepts.
func (s *Server) handleModelExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, "model-export") {
		return
	}
	conf, err := s.loadModelConfig(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "model-export", http.StatusNotFound, err)
		return
	}

	data, err := yaml.Marshal(conf)
	if err != nil {
		s.fail(w, "model-export", http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(data)
	requestsTotal.WithLabelValues("model-export", "ok").Inc()
}

// loadModelConfig assembles a validated configuration from stored records.
func (s *Server) loadModelConfig(modelID string) (*config.Configuration, error) {
	m, err := s.store.GetModel(modelID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(modelID)
	if err != nil {
		return nil, err
	}

	conf := &config.Configuration{Model: m.Params, Items: items}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("stored model %s is invalid: %w", modelID, err)
	}
	return conf, nil
}

// prepare validates request parameters and returns the assembled
// configuration plus any non-fatal warnings.
func (s *Server) prepare(params config.ModelParameters, items []config.LineItem) (*config.Configuration, []string, error) {
	conf := &config.Configuration{Model: params, Items: items}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}
	return conf, conf.ValidateConfiguration(), nil
}

func (s *Server) requireStore(w http.ResponseWriter, route string) bool {
	if s.store != nil {
		return true
	}
	s.fail(w, route, http.StatusServiceUnavailable, errors.New("record store is not configured"))
	return false
}

// decode reads a JSON request body with the configured size limit. It writes
// the error response itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, route string, dst interface{}) bool {
	limit := s.maxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	// An empty body decodes to the zero value.
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, route, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, route string, status int, err error) {
	requestsTotal.WithLabelValues(route, "error").Inc()
	s.logger.Warn("request failed",
		zap.String("op", "server."+route),
		zap.Int("status", status),
		zap.Error(err),
	)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
