package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ablizer/ablizer/internal/analysis"
	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/stats"
	"github.com/ablizer/ablizer/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	CachedResults int    `json:"cached_results"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ErrorResponse is the body of every non-2xx JSON response. Field is set
// when a count was rejected.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CountsRequest carries both variants' counts. Field names match the
// calculator's validation messages.
type CountsRequest struct {
	ImpressionsA int `json:"impressions_a"`
	ConversionsA int `json:"conversions_a"`
	ImpressionsB int `json:"impressions_b"`
	ConversionsB int `json:"conversions_b"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	totals, err := s.store.Totals(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		TestsCount:    totals.Tests,
		CachedResults: s.cache.Len(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// handleReports returns the report document for every test with counts.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.analyzer.All(r.Context(), func(test *store.Test, err error) {
		s.logger.Warn("cannot analyze test", "test", test.Name, "err", err)
	})
	if err != nil {
		s.logger.Error("failed to list tests", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch tests", "")
		return
	}

	writeJSON(w, http.StatusOK, report.NewDocument(analysis.Reports(analyses)))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	test, ok := s.lookupTest(w, r)
	if !ok {
		return
	}

	a, err := s.analyzer.Analyze(r.Context(), test)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	rep, ok := a.Report()
	if !ok {
		writeError(w, http.StatusNotFound, "no counts recorded for test", "")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleRecord stores new counts for a test and returns the fresh report.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.metrics.rateLimited.Inc()
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	var req CountsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	test, ok := s.lookupTest(w, r)
	if !ok {
		return
	}

	rep, err := s.analyzer.Record(r.Context(), test,
		stats.Sample{Impressions: req.ImpressionsA, Conversions: req.ConversionsA},
		stats.Sample{Impressions: req.ImpressionsB, Conversions: req.ConversionsB},
	)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	s.metrics.reportsRecorded.WithLabelValues(string(rep.Method), string(rep.Outcome)).Inc()
	s.logger.Info("report saved", "test", test.Name, "method", rep.Method, "p_value", rep.PValue)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) lookupTest(w http.ResponseWriter, r *http.Request) (*store.Test, bool) {
	test, err := s.store.GetTest(r.Context(), r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "test not found", "")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to get test", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
		return nil, false
	}
	return test, true
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var inputErr *stats.InvalidInputError
	if errors.As(err, &inputErr) {
		s.metrics.invalidInput.WithLabelValues(inputErr.Field).Inc()
		writeError(w, http.StatusBadRequest, inputErr.Error(), inputErr.Field)
		return
	}
	s.logger.Error("analysis failed", "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Field: field})
}
