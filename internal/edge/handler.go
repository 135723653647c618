package edge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pitchside/internal/apipaths"
	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/newsapi"
)

// Handler serves the raw news passthrough and rejects every other path
type Handler struct {
	upstream *newsapi.Client
	config   *Config
	logger   *slog.Logger
}

// NewHandler creates the edge handler
func NewHandler(cfg *Config, upstream *newsapi.Client, logger *slog.Logger) *Handler {
	return &Handler{
		upstream: upstream,
		config:   cfg,
		logger:   logger,
	}
}

// ServeHTTP forwards /api/news* to the provider and returns its JSON as-is
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !strings.HasPrefix(req.URL.Path, apipaths.News) {
		h.logger.DebugContext(req.Context(), "edge: unknown path", "method", req.Method, "path", req.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Not found"))
		return
	}

	h.logger.InfoContext(req.Context(), "edge: incoming request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	apiKey := config.NewsAPIKey()
	if apiKey == "" {
		h.logger.ErrorContext(req.Context(), "edge: news API key is not configured", "env", config.NewsAPIKeyEnv)
		writeError(w, domain.ErrConfigMissing.Message)
		return
	}

	status, body, err := h.upstream.Raw(req.Context(), apiKey, h.config.Topic)
	if err != nil {
		h.logger.ErrorContext(req.Context(), "edge: upstream request failed", "error", err)
		writeError(w, domain.PublicMessage(err))
		return
	}
	if !json.Valid(body) {
		h.logger.ErrorContext(req.Context(), "edge: upstream returned invalid JSON", "status", status)
		writeError(w, "invalid JSON from news provider")
		return
	}

	h.logger.DebugContext(req.Context(), "edge: passthrough", "upstream_status", status, "bytes", len(body))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
