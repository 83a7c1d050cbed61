package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/parser"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest               = "bad_request"
	CodeValidationFailed         = "validation_failed"
	CodeCollectionNotFound       = "collection_not_found"
	CodeCollectionExists         = "collection_already_exists"
	CodeUnsupportedDocument      = "unsupported_document"
	CodeDocumentParseFailed      = "document_parse_failed"
	CodePayloadTooLarge          = "payload_too_large"
	CodeRateLimited              = "rate_limited"
	CodeEmbeddingProviderError   = "embedding_provider_error"
	CodeKeywordSearchUnsupported = "keyword_search_not_supported"
	CodeStoreUnavailable         = "vector_store_unavailable"
	CodeInternalError            = "internal_error"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler writes a reply for err and reports whether it did.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrUnsupportedDocument, http.StatusUnsupportedMediaType, CodeUnsupportedDocument),
		parseErrorHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeCollectionExists),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrKeywordSearchNotSupported, http.StatusNotImplemented, CodeKeywordSearchUnsupported),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler matches one sentinel and replies with its message only.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// parseErrorHandler exposes the parse failure detail; it names a template problem, not internals.
func parseErrorHandler(w http.ResponseWriter, err error) bool {
	var perr *parser.StructuralParseError
	if !errors.As(err, &perr) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodeDocumentParseFailed, perr.Err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("request failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
