// Package api exposes the knowledge store, query views, and the three
// completion-service contracts over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/csgenius/csgenius/internal/audit"
	"github.com/csgenius/csgenius/internal/draft"
	"github.com/csgenius/csgenius/internal/extract"
	"github.com/csgenius/csgenius/internal/ingest"
	"github.com/csgenius/csgenius/internal/knowledge"
)

const maxRequestBodySize = 20 << 20 // 20MB; extraction bodies carry inline images

// KnowledgeExtractor is the extraction contract as seen by the API.
type KnowledgeExtractor interface {
	Extract(ctx context.Context, contextText, imageBase64 string) ([]knowledge.Item, error)
}

// ChatAuditor is the audit contract as seen by the API.
type ChatAuditor interface {
	Audit(ctx context.Context, imageBase64, contextText string) (audit.Result, error)
}

// ReplyDrafter is the draft contract as seen by the API.
type ReplyDrafter interface {
	Draft(ctx context.Context, keywords, tone string, rules []string) (string, error)
}

// Deps holds the handler dependencies.
type Deps struct {
	Store     *knowledge.Store
	Extractor KnowledgeExtractor
	Auditor   ChatAuditor
	Drafter   ReplyDrafter
	Token     string
}

// NewHandler builds the HTTP API. Every route except /health requires
// the bearer token.
func NewHandler(deps Deps) http.Handler {
	guards := newContractGuards()

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/knowledge", handleListKnowledge(deps))
		r.Post("/knowledge", handleAddKnowledge(deps))
		r.Patch("/knowledge/{id}", handleEditKnowledge(deps))
		r.Delete("/knowledge/{id}", handleDeleteKnowledge(deps))

		r.Get("/knowledge/stats", handleStats(deps))
		r.Get("/knowledge/distribution", handleDistribution(deps))
		r.Get("/knowledge/recent", handleRecent(deps))
		r.Get("/knowledge/categories", handleCategories(deps))

		r.Get("/knowledge/export", handleExport(deps))
		r.Post("/knowledge/import", handleImport(deps))

		r.Post("/extract", handleExtract(deps, guards))
		r.Post("/audit", handleAudit(deps, guards))
		r.Post("/draft", handleDraft(deps, guards))

		r.Post("/files/prepare", handlePrepareFiles())
	})

	return r
}

func handleListKnowledge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items := deps.Store.Filter(q.Get("search"), q.Get("app"), q.Get("category"))
		if items == nil {
			items = []knowledge.Item{}
		}
		writeJSON(w, map[string]any{"items": items, "total": deps.Store.Len()})
	}
}

// addRequest is a manual-entry batch, the "save to knowledge base" flow.
type addRequest struct {
	Items []knowledge.Item `json:"items"`
}

func handleAddKnowledge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req addRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		for i := range req.Items {
			it := &req.Items[i]
			if it.Question == "" || it.Answer == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "question and answer are required")
				return
			}
			it.App = knowledge.NormalizeApp(it.App)
			if it.Category == "" {
				it.Category = knowledge.AppGeneral
			}
			if it.Frequency == "" {
				it.Frequency = knowledge.FrequencyMedium
			}
		}

		created := deps.Store.Add(req.Items)
		if created == nil {
			created = []knowledge.Item{}
		}
		writeJSON(w, map[string]any{"items": created})
	}
}

type editRequest struct {
	OptimizedAnswer string `json:"optimizedAnswer"`
}

func handleEditKnowledge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		id := chi.URLParam(r, "id")
		if !deps.Store.UpdateOptimizedAnswer(id, req.OptimizedAnswer) {
			httpError(w, http.StatusNotFound, "not_found_error", "no knowledge item with id %s", id)
			return
		}
		item, _ := deps.Store.Get(id)
		writeJSON(w, item)
	}
}

func handleDeleteKnowledge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !deps.Store.Remove(id) {
			httpError(w, http.StatusNotFound, "not_found_error", "no knowledge item with id %s", id)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted", "id": id})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Store.Stats())
	}
}

func handleDistribution(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		apps := deps.Store.AppDistribution()
		cats := deps.Store.CategoryDistribution(8)
		if apps == nil {
			apps = []knowledge.GroupCount{}
		}
		if cats == nil {
			cats = []knowledge.GroupCount{}
		}
		writeJSON(w, map[string]any{"apps": apps, "categories": cats})
	}
}

func handleRecent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		items := deps.Store.Recent(5)
		if items == nil {
			items = []knowledge.Item{}
		}
		writeJSON(w, map[string]any{"items": items})
	}
}

func handleCategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		cats := deps.Store.Categories()
		if cats == nil {
			cats = []string{}
		}
		writeJSON(w, map[string]any{"categories": cats})
	}
}

func handleExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+knowledge.BackupFilename(time.Now())+`"`)
		if err := knowledge.WriteBackup(w, deps.Store.Items()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "exporting backup: %v", err)
		}
	}
}

func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		items, err := knowledge.ReadBackup(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "backup must be a JSON array of knowledge items: %v", err)
			return
		}

		replace := r.URL.Query().Get("replace") == "true"
		n := deps.Store.Import(items, replace)
		writeJSON(w, map[string]any{"imported": n, "total": deps.Store.Len()})
	}
}

// inlineImage is the request shape for an inline image payload.
type inlineImage struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type extractRequest struct {
	ContextText string       `json:"contextText"`
	Image       *inlineImage `json:"image"`
}

func handleExtract(deps Deps, guards *contractGuards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tryAcquire(guards.extract) {
			httpError(w, http.StatusConflict, "busy_error", "an extraction is already in progress")
			return
		}
		defer release(guards.extract)

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var imageData string
		if req.Image != nil {
			imageData = req.Image.Data
		}

		extracted, err := deps.Extractor.Extract(r.Context(), req.ContextText, imageData)
		if errors.Is(err, extract.ErrEmptyInput) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "context text or an image is required")
			return
		}
		if err != nil {
			// All transport, service, and parse failures collapse into
			// one generic notice; details go to the server log only.
			httpError(w, http.StatusBadGateway, "api_error", "analysis failed, please check the input and try again")
			return
		}

		created := deps.Store.Add(extracted)
		if created == nil {
			created = []knowledge.Item{}
		}
		writeJSON(w, map[string]any{"items": created})
	}
}

type auditRequest struct {
	Image       *inlineImage `json:"image"`
	ContextText string       `json:"contextText"`
}

func handleAudit(deps Deps, guards *contractGuards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tryAcquire(guards.audit) {
			httpError(w, http.StatusConflict, "busy_error", "an audit is already in progress")
			return
		}
		defer release(guards.audit)

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req auditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var imageData string
		if req.Image != nil {
			imageData = req.Image.Data
		}

		result, err := deps.Auditor.Audit(r.Context(), imageData, req.ContextText)
		if errors.Is(err, audit.ErrNoImage) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "a chat screenshot is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "audit failed, please try again")
			return
		}

		writeJSON(w, map[string]any{"result": result, "grade": result.Grade()})
	}
}

type draftRequest struct {
	Keywords string   `json:"keywords"`
	Tone     string   `json:"tone"`
	Rules    []string `json:"rules"`
}

func handleDraft(deps Deps, guards *contractGuards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tryAcquire(guards.draft) {
			httpError(w, http.StatusConflict, "busy_error", "a draft is already in progress")
			return
		}
		defer release(guards.draft)

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		reply, err := deps.Drafter.Draft(r.Context(), req.Keywords, req.Tone, req.Rules)
		if errors.Is(err, draft.ErrNoKeywords) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "keywords are required")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "draft generation failed, please try again")
			return
		}

		writeJSON(w, map[string]any{"reply": reply, "tone": draft.NormalizeTone(req.Tone)})
	}
}

func handlePrepareFiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseMultipartForm(maxRequestBodySize); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart form: %v", err)
			return
		}

		var order []string
		files := make(map[string][]byte)
		for _, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				data, err := readFormFile(fh)
				if err != nil {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "reading %s: %v", fh.Filename, err)
					return
				}
				files[fh.Filename] = data
				order = append(order, fh.Filename)
			}
		}

		atts, err := ingest.PrepareAll(files, order)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "preparing files: %v", err)
			return
		}
		if atts == nil {
			atts = []ingest.Attachment{}
		}
		writeJSON(w, map[string]any{"attachments": atts})
	}
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
