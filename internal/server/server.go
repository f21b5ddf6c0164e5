// Package server exposes the dose calculator over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jwulff/dosecalc-go/internal/dosing"
)

// RequestIDHeader carries the per-request ID.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds a dose request body.
const maxBodyBytes = 4 << 10

// DoseRequest is the body of POST /api/dose. Trend defaults to stable.
type DoseRequest struct {
	Glucose *float64      `json:"glucose"`
	Trend   *dosing.Trend `json:"trend,omitempty"`
}

// DoseResponse echoes the inputs alongside the calculation.
type DoseResponse struct {
	Glucose  float64      `json:"glucose"`
	Trend    dosing.Trend `json:"trend"`
	BaseDose int          `json:"baseDose"`
	dosing.Result
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// Server is the HTTP front end.
type Server struct {
	Addr    string
	handler http.Handler
	srv     *http.Server
}

// New creates a server listening on addr.
func New(addr string) *Server {
	s := &Server{Addr: addr}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /api/dose", handleDoseQuery)
	mux.HandleFunc("POST /api/dose", handleDoseBody)
	mux.HandleFunc("GET /api/reference", handleReference)
	return withRequestID(withLogging(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", s.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("[INFO] shutting down server")
		return s.srv.Shutdown(shutdownCtx)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func handleDoseQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("glucose") {
		writeError(w, http.StatusBadRequest, "glucose is required")
		return
	}
	glucose, err := dosing.ParseGlucose(q.Get("glucose"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trend := dosing.DefaultTrend
	if v := q.Get("trend"); v != "" {
		trend, err = dosing.ParseTrend(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeDose(w, glucose, trend)
}

func handleDoseBody(w http.ResponseWriter, r *http.Request) {
	var req DoseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Glucose == nil {
		writeError(w, http.StatusBadRequest, "glucose is required")
		return
	}
	if err := dosing.ValidateGlucose(*req.Glucose); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trend := dosing.DefaultTrend
	if req.Trend != nil {
		trend = *req.Trend
	}

	writeDose(w, *req.Glucose, trend)
}

func handleReference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dosing.Reference())
}

func writeDose(w http.ResponseWriter, glucose float64, trend dosing.Trend) {
	writeJSON(w, http.StatusOK, DoseResponse{
		Glucose:  glucose,
		Trend:    trend,
		BaseDose: dosing.BaseDose,
		Result:   dosing.Compute(glucose, trend),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
