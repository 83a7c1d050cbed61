package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/docx"
	healthuc "github.com/kailas-cloud/cvindex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/cvindex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/cvindex/internal/usecase/search"
	"github.com/kailas-cloud/cvindex/internal/vectorstore"
)

const defaultMaxUpload = 20 << 20

// Server serves the cvindex HTTP API.
type Server struct {
	collections   Collections
	search        Searcher
	ingest        Ingester
	health        HealthChecker
	logger        *zap.Logger
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections Collections,
	search Searcher,
	ingest Ingester,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		collections:   collections,
		search:        search,
		ingest:        ingest,
		health:        health,
		logger:        logger,
		maxUpload:     defaultMaxUpload,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxUpload caps the size of an uploaded document in bytes.
func (s *Server) WithMaxUpload(n int64) *Server {
	if n > 0 {
		s.maxUpload = n
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", s.ListCollections)
		r.Post("/", s.CreateCollection)
		r.Get("/{name}", s.GetCollection)
		r.Delete("/{name}", s.DeleteCollection)
	})

	r.Post("/search", s.Search)
	r.Post("/ingest", s.Ingest)
}

type collectionListResponse struct {
	Collections []string `json:"collections"`
	Count       int      `json:"count"`
}

type collectionResponse struct {
	Name       string         `json:"name"`
	Count      int            `json:"count"`
	Metadata   map[string]any `json:"metadata"`
	Dimensions int            `json:"dimensions"`
}

type createCollectionRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
	Recreate bool           `json:"recreate"`
}

type searchRequest struct {
	Collection string          `json:"collection"`
	Query      string          `json:"query"`
	Filters    json.RawMessage `json:"filters"`
	Limit      int             `json:"limit"`
}

type ingestResponse struct {
	CVID           string `json:"cv_id"`
	Candidate      string `json:"candidate"`
	Source         string `json:"source"`
	PersonalChunks int    `json:"personal_chunks"`
	Projects       int    `json:"projects"`
	ProjectChunks  int    `json:"project_chunks"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	names := s.collections.ListCollections(r.Context())
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, collectionListResponse{Collections: names, Count: len(names)})
}

// GetCollection handles GET /collections/{name}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.collections.CollectionExists(r.Context(), name) {
		writeError(w, http.StatusNotFound, CodeCollectionNotFound, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(s.collections.GetCollectionInfo(r.Context(), name)))
}

// CreateCollection handles POST /collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Collection name is required")
		return
	}

	ctx := r.Context()
	var ok bool
	if req.Recreate {
		ok = s.collections.RecreateCollection(ctx, req.Name, req.Metadata)
	} else {
		if s.collections.CollectionExists(ctx, req.Name) {
			writeError(w, http.StatusConflict, CodeCollectionExists, "collection already exists")
			return
		}
		metadata := req.Metadata
		if metadata == nil {
			metadata = vectorstore.DefaultCollectionMetadata
		}
		ok = s.collections.CreateCollection(ctx, req.Name, metadata)
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "collection was not created")
		return
	}

	writeJSON(w, http.StatusCreated, collectionToResponse(s.collections.GetCollectionInfo(ctx, req.Name)))
}

// DeleteCollection handles DELETE /collections/{name}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.collections.CollectionExists(r.Context(), name) {
		writeError(w, http.StatusNotFound, CodeCollectionNotFound, "collection not found")
		return
	}
	if !s.collections.DeleteCollection(r.Context(), name) {
		writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "collection was not deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// "filters": null and an absent key both mean a standard search.
	var filters any
	if len(req.Filters) > 0 {
		if err := json.Unmarshal(req.Filters, &filters); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid filters: "+err.Error())
			return
		}
	}

	resp, err := s.search.Search(r.Context(), searchuc.Request{
		Collection: req.Collection,
		Query:      req.Query,
		Filters:    filters,
		Limit:      req.Limit,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ingest handles POST /ingest with a multipart "file" field holding a .docx.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "document is too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	source := filepath.Base(header.Filename)
	if !ingestuc.IsDocx(source) {
		writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedDocument, "only .docx documents are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read upload")
		return
	}
	doc, err := docx.Read(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeDocumentParseFailed, "file is not a readable .docx document")
		return
	}

	res, err := s.ingest.IngestDocument(r.Context(), doc, source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingestResponse{
		CVID:           res.CVID,
		Candidate:      res.Candidate,
		Source:         res.Source,
		PersonalChunks: res.PersonalChunks,
		Projects:       res.Projects,
		ProjectChunks:  res.ProjectChunks,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func collectionToResponse(info vectorstore.CollectionInfo) collectionResponse {
	metadata := info.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return collectionResponse{
		Name:       info.Name,
		Count:      info.Count,
		Metadata:   metadata,
		Dimensions: info.Dimensions,
	}
}
