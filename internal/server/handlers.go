package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/ragsearch/internal/answer"
	"github.com/ziadkadry99/ragsearch/internal/chunker"
	"github.com/ziadkadry99/ragsearch/internal/llm"
	"github.com/ziadkadry99/ragsearch/internal/pipeline"
	"github.com/ziadkadry99/ragsearch/internal/provider"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

const maxUploadBytes = 64 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the {"detail": "..."} error body used across the API.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// errorStatus maps pipeline and retrieval errors onto HTTP statuses:
// client mistakes are 400, an empty corpus is 404, provider outages are
// 502, everything else is 500.
func errorStatus(err error) int {
	var provErr *provider.Error
	switch {
	case errors.Is(err, retriever.ErrEmptyQuery),
		errors.Is(err, chunker.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, retriever.ErrEmptyCorpus):
		return http.StatusNotFound
	case errors.As(err, &provErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// formInt parses an optional integer form field, 0 when absent.
func formInt(r *http.Request, field string) (int, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return n, nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type documentView struct {
		ContentHash string `json:"content_hash"`
		DisplayName string `json:"display_name"`
		CompanyName string `json:"company_name,omitempty"`
		ChunkCount  int    `json:"chunk_count"`
		// Indexed reports whether the manifest and vector index are both
		// on disk, so stale catalog rows are visible to operators.
		Indexed   bool   `json:"indexed"`
		CreatedAt string `json:"created_at,omitempty"`
	}
	views := make([]documentView, len(docs))
	for i, d := range docs {
		views[i] = documentView{
			ContentHash: d.ContentHash,
			DisplayName: d.DisplayName,
			CompanyName: d.CompanyName,
			ChunkCount:  d.ChunkCount,
			Indexed:     s.paths.ArtifactsExist(d.ContentHash),
		}
		if !d.CreatedAt.IsZero() {
			views[i].CreatedAt = d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || strings.ContainsAny(name, "/\\") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	if err := os.MkdirAll(s.paths.DocumentsDir(), 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dest := filepath.Join(s.paths.DocumentsDir(), name)
	out, err := os.Create(dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := out.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	displayName := r.FormValue("display_name")
	if displayName == "" {
		displayName = name
	}
	chunkSize, err := formInt(r, "chunk_size")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	chunkOverlap, err := formInt(r, "chunk_overlap")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := s.pipeline.ProcessFile(r.Context(), pipeline.FileRequest{
		Path:         dest,
		DisplayName:  displayName,
		CompanyName:  r.FormValue("company_name"),
		SkipExisting: true,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if outcome.Err != nil {
		writeError(w, errorStatus(outcome.Err), outcome.Detail)
		return
	}
	if outcome.Status == pipeline.StatusIndexed {
		if err := s.retriever.ReloadDocument(s.paths, outcome.ContentHash); err != nil {
			s.logger.Error("reloading document after upload", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path         string   `json:"path"`
		CompanyName  string   `json:"company_name"`
		Include      []string `json:"include"`
		SkipExisting *bool    `json:"skip_existing"`
	}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	skipExisting := true
	if req.SkipExisting != nil {
		skipExisting = *req.SkipExisting
	}

	// A path processes that one file; otherwise the whole documents
	// directory is batched.
	if req.Path != "" {
		outcome := s.pipeline.ProcessFile(r.Context(), pipeline.FileRequest{
			Path:         req.Path,
			CompanyName:  req.CompanyName,
			SkipExisting: skipExisting,
		})
		if outcome.Err != nil {
			writeError(w, errorStatus(outcome.Err), outcome.Detail)
			return
		}
		if outcome.Status == pipeline.StatusIndexed {
			if err := s.retriever.ReloadDocument(s.paths, outcome.ContentHash); err != nil {
				s.logger.Error("reloading document after process", zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	report, err := s.pipeline.ProcessDocuments(r.Context(), pipeline.BatchRequest{
		Dir:          s.paths.DocumentsDir(),
		Include:      req.Include,
		CompanyName:  req.CompanyName,
		SkipExisting: skipExisting,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	for _, out := range report.Outcomes {
		if out.Status != pipeline.StatusIndexed {
			continue
		}
		if err := s.retriever.ReloadDocument(s.paths, out.ContentHash); err != nil {
			s.logger.Error("reloading document after batch",
				zap.String("content_hash", out.ContentHash),
				zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, report)
}

type searchRequest struct {
	Query  string `json:"query"`
	Mode   string `json:"mode"`
	TopK   int    `json:"top_k"`
	Filter string `json:"filter"`
}

// searchMode resolves the request mode, falling back to the configured
// default when the request leaves it empty.
func (s *Server) searchMode(requested string) (retriever.SearchMode, error) {
	if requested == "" {
		requested = s.cfg.SearchMode
	}
	return retriever.ParseSearchMode(requested)
}

func (s *Server) topK(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.cfg.TopK
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	mode, err := s.searchMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sources, err := s.retriever.Search(r.Context(), retriever.Request{
		Query:     req.Query,
		Mode:      mode,
		TopK:      s.topK(req.TopK),
		Filter:    req.Filter,
		Overfetch: s.cfg.Overfetch,
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"sources": sources,
	})
}

type chatRequest struct {
	Question string        `json:"question"`
	Mode     string        `json:"mode"`
	TopK     int           `json:"top_k"`
	Filter   string        `json:"filter"`
	LLMModel string        `json:"llm_model"`
	History  []llm.Message `json:"history"`
	Stream   bool          `json:"stream"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	mode, err := s.searchMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var model llm.Model
	if req.LLMModel != "" {
		if model, err = llm.ParseModel(req.LLMModel); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	traceID := uuid.NewString()
	logger := s.logger.With(zap.String("trace_id", traceID))
	logger.Info("chat request",
		zap.String("mode", mode.String()),
		zap.Bool("stream", req.Stream))

	searchQuery := req.Question
	if s.cfg.RewriteQuery && strings.TrimSpace(req.Question) != "" {
		searchQuery = s.composer.RewriteQuery(r.Context(), req.Question)
	}

	sources, err := s.retriever.Search(r.Context(), retriever.Request{
		Query:     searchQuery,
		Mode:      mode,
		TopK:      s.topK(req.TopK),
		Filter:    req.Filter,
		Overfetch: s.cfg.Overfetch,
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	composeReq := answer.Request{
		Question: req.Question,
		Sources:  sources,
		Model:    model,
		History:  req.History,
	}
	if req.Stream {
		s.streamChat(w, r, composeReq, logger)
		return
	}

	ans, err := s.composer.Compose(r.Context(), composeReq)
	if err != nil {
		logger.Error("composing answer", zap.Error(err))
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// streamChat delivers the answer over server-sent events: delta events
// carry raw model output as it arrives, one final answer event carries
// the parsed result.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, composeReq answer.Request, logger *zap.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ans, err := s.composer.ComposeStream(r.Context(), composeReq, func(delta string) error {
		writeSSE(w, "delta", map[string]string{"content": delta})
		flusher.Flush()
		return r.Context().Err()
	})
	if err != nil {
		logger.Error("streaming answer", zap.Error(err))
		writeSSE(w, "error", map[string]string{"detail": err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, "answer", ans)
	flusher.Flush()
}

func writeSSE(w io.Writer, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
