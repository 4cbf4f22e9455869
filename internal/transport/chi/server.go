package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/domain"
	logpkg "github.com/hireloop/matchdex/internal/logger"
	healthuc "github.com/hireloop/matchdex/internal/usecase/health"
	indexinguc "github.com/hireloop/matchdex/internal/usecase/indexing"
	matchuc "github.com/hireloop/matchdex/internal/usecase/match"
	"github.com/hireloop/matchdex/internal/worker"
)

// Enqueuer hands accepted indexing requests to the background pool.
type Enqueuer interface {
	Enqueue(task worker.Task) bool
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the indexing and matching API over chi.
type Server struct {
	indexing      *indexinguc.Service
	matches       *matchuc.Service
	health        *healthuc.Service
	queue         Enqueuer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indexing *indexinguc.Service,
	matches *matchuc.Service,
	health *healthuc.Service,
	queue Enqueuer,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indexing: indexing,
		matches:  matches,
		health:   health,
		queue:    queue,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAccessDenied, http.StatusForbidden, codeAccessDenied),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrDocumentSourceUnavailable, http.StatusBadGateway, codeSourceDown),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
	}
	return s
}

// Routes registers all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/index/profile", s.IndexProfile)
		r.Post("/index/jobs/{jobID}", s.IndexJob)
		r.Get("/index/{documentType}/{documentID}", s.IndexStatus)
		r.Get("/matches/jobs", s.JobMatches)
		r.Get("/matches/jobs/{jobID}/candidates", s.CandidateMatches)
	})
}

// IndexProfile handles POST /api/v1/index/profile. The caller indexes their
// own candidate profile; the document id is the principal's user id.
func (s *Server) IndexProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}
	if principal.Role != RoleCandidate && !principal.IsAdmin() {
		writeError(w, http.StatusForbidden, codeAccessDenied, "only candidates can index a profile")
		return
	}

	rec, err := s.indexing.RequestIndexing(r.Context(), principal.UserID, domain.TypeCandidateProfile)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.enqueue(principal.UserID, domain.TypeCandidateProfile)
	writeJSON(w, http.StatusAccepted, indexAcceptedResponse{
		DocumentID:   rec.DocumentID(),
		DocumentType: string(rec.DocumentType()),
		Status:       string(rec.Status()),
	})
}

// IndexJob handles POST /api/v1/index/jobs/{jobID}. Ownership is not checked
// here: the request only records intent, and the pipeline fetches the job
// from its owning service either way.
func (s *Server) IndexJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}
	if principal.Role != RoleEmployer && !principal.IsAdmin() {
		writeError(w, http.StatusForbidden, codeAccessDenied, "only employers can index a job")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "job id is required")
		return
	}

	rec, err := s.indexing.RequestIndexing(r.Context(), jobID, domain.TypeJob)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	s.enqueue(jobID, domain.TypeJob)
	writeJSON(w, http.StatusAccepted, indexAcceptedResponse{
		DocumentID:   rec.DocumentID(),
		DocumentType: string(rec.DocumentType()),
		Status:       string(rec.Status()),
	})
}

// IndexStatus handles GET /api/v1/index/{documentType}/{documentID}: the
// poll endpoint for the asynchronous pipeline. Candidates may only read
// their own profile record; admins may read anything.
func (s *Server) IndexStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	docType, err := domain.ParseDocumentType(chi.URLParam(r, "documentType"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "unknown document type")
		return
	}
	docID := chi.URLParam(r, "documentID")

	if docType == domain.TypeCandidateProfile && !principal.IsAdmin() && principal.UserID != docID {
		writeError(w, http.StatusForbidden, codeAccessDenied, "cannot read another user's record")
		return
	}

	rec, err := s.indexing.Record(r.Context(), docID, docType)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recordToDTO(rec))
}

// JobMatches handles GET /api/v1/matches/jobs for the authenticated candidate.
func (s *Server) JobMatches(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	page, pageSize, err := paginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	resp, err := s.matches.JobMatchesForCandidate(r.Context(), principal.UserID, page, pageSize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, matchToDTO(resp))
}

// CandidateMatches handles GET /api/v1/matches/jobs/{jobID}/candidates for
// the owning employer or an admin.
func (s *Server) CandidateMatches(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "job id is required")
		return
	}

	page, pageSize, err := paginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	requester := domain.Requester{UserID: principal.UserID, Admin: principal.IsAdmin()}
	resp, err := s.matches.CandidateMatchesForJob(r.Context(), jobID, requester, page, pageSize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, matchToDTO(resp))
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) enqueue(documentID string, documentType domain.DocumentType) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(worker.Task{DocumentID: documentID, DocumentType: documentType}) {
		s.logger.Warn("indexing queue full, task will wait for the next request",
			zap.String("document_id", documentID),
			zap.String("document_type", string(documentType)))
	}
}

// paginationParams parses page and pageSize query params. Zero means "use
// the service default"; range validation happens in the usecase layer.
func paginationParams(r *http.Request) (page, pageSize int, err error) {
	page = 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("page must be an integer")
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, errors.New("pageSize must be an integer")
		}
	}
	return page, pageSize, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAccessDenied,
		domain.ErrValidation,
		domain.ErrDocumentSourceUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
