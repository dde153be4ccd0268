package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/attendrix/server/internal/attendrix/service"
	"github.com/attendrix/server/internal/attendrix/store"
	"github.com/attendrix/server/internal/attendrix/types"
)

type Dependencies struct {
	Logger      *log.Logger
	Addr        string
	Scans       *service.ScanService
	Enrollments *service.EnrollmentService
	Ledger      store.AttendanceStore
	Location    *time.Location
}

type Server struct {
	httpServer  *http.Server
	logger      *log.Logger
	mux         *http.ServeMux
	scans       *service.ScanService
	enrollments *service.EnrollmentService
	ledger      store.AttendanceStore
	loc         *time.Location
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		logger:      d.Logger,
		mux:         mux,
		scans:       d.Scans,
		enrollments: d.Enrollments,
		ledger:      d.Ledger,
		loc:         loc,
	}

	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/enroll", s.handleEnroll)
	mux.HandleFunc("GET /v1/attendance/{user_id}", s.handleRecords)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.scans.Scan(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyEmbedding):
			writeError(w, http.StatusBadRequest, "empty_embedding", err.Error())
		case errors.Is(err, service.ErrConcurrencyExceeded):
			// Retryable: the caller should back off and rescan.
			writeError(w, http.StatusServiceUnavailable, "concurrency_exceeded", err.Error())
		default:
			s.logger.Error("scan error", "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.enrollments.Enroll(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserID):
			writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
		case errors.Is(err, service.ErrEmptyEmbedding):
			writeError(w, http.StatusBadRequest, "empty_embedding", err.Error())
		case errors.Is(err, service.ErrDimensionMismatch):
			writeError(w, http.StatusBadRequest, "dimension_mismatch", err.Error())
		default:
			s.logger.Error("enroll error", "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id is required")
		return
	}

	day := strings.TrimSpace(r.URL.Query().Get("date"))
	if day == "" {
		day = time.Now().In(s.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	records, err := s.ledger.RecordsForUserOnDate(r.Context(), userID, day)
	if err != nil {
		s.logger.Error("records error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	payload := make([]types.AttendanceRecordPayload, 0, len(records))
	for _, rec := range records {
		payload = append(payload, types.FromRecord(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"date":    day,
		"records": payload,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
