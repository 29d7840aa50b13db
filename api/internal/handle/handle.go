package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"dp-normalizer/api/internal/analysis"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/normalize"
	"dp-normalizer/api/internal/prompt"
	"dp-normalizer/api/internal/store"
)

// RecordStore persists normalized records per session.
type RecordStore interface {
	Upsert(ctx context.Context, row store.RecordRow) error
	Find(ctx context.Context, sessionID string) (*store.RecordRow, error)
	Delete(ctx context.Context, sessionID string) error
}

// AttemptStore keeps the audit trail of normalizations.
type AttemptStore interface {
	Insert(ctx context.Context, a store.Attempt) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]store.Attempt, error)
}

type Handle struct {
	Profiles   *llm.Profiles
	Service    *analysis.Service
	Normalizer *normalize.Normalizer
	Prompts    prompt.Catalog

	// Records and Attempts are optional; without a database results are
	// only returned, never stored.
	Records  RecordStore
	Attempts AttemptStore
	Ping     func(ctx context.Context) error

	Timeout  time.Duration
	validate *validator.Validate
}

func New(profiles *llm.Profiles, svc *analysis.Service, n *normalize.Normalizer) *Handle {
	return &Handle{
		Profiles:   profiles,
		Service:    svc,
		Normalizer: n,
		Timeout:    180 * time.Second,
		validate:   validator.New(),
	}
}

// Register mounts every endpoint on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/v1/models", h.Models)
	mux.HandleFunc("/v1/analyze", h.Analyze)
	mux.HandleFunc("/v1/notice", h.Notice)
	mux.HandleFunc("/v1/describe-photo", h.DescribePhoto)
	mux.HandleFunc("/v1/normalize", h.Normalize)
	mux.HandleFunc("/v1/prompts", h.UpdateSystemPrompt)
	mux.HandleFunc("GET /v1/sessions/{id}/record", h.SessionRecord)
	mux.HandleFunc("GET /v1/sessions/{id}/pdf", h.SessionPDF)
	mux.HandleFunc("GET /v1/sessions/{id}/attempts", h.SessionAttempts)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.DeleteSession)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// deadline reads X-Request-Timeout or ?timeoutSec=, in seconds.
func (h *Handle) deadline(r *http.Request) time.Duration {
	d := h.Timeout
	if d <= 0 {
		d = 180 * time.Second
	}
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	}
	return d
}

func (h *Handle) profile(key string) (llm.Profile, bool) {
	if key == "" {
		return h.Profiles.Default(), true
	}
	return h.Profiles.Lookup(key)
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type modelsResp struct {
	Models  map[string]string `json:"models"`
	Default string            `json:"default"`
}

func (h *Handle) Models(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, modelsResp{Models: h.Profiles.Labels(), Default: h.Profiles.Default().Key})
}
