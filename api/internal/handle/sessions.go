package handle

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/render"
	"dp-normalizer/api/internal/store"
)

func (h *Handle) findSession(w http.ResponseWriter, r *http.Request) (*store.RecordRow, bool) {
	if h.Records == nil {
		http.Error(w, "no record store configured", http.StatusNotImplemented)
		return nil, false
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return nil, false
	}
	row, err := h.Records.Find(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no record for session "+id, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return row, true
}

type recordResp struct {
	SessionID    string        `json:"session_id"`
	Model        string        `json:"model"`
	Schema       string        `json:"schema"`
	Record       fields.Record `json:"record"`
	FallbackUsed bool          `json:"fallback_used"`
	UpdatedAt    string        `json:"updated_at"`
}

func (h *Handle) SessionRecord(w http.ResponseWriter, r *http.Request) {
	row, ok := h.findSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, recordResp{
		SessionID:    row.SessionID,
		Model:        row.Profile,
		Schema:       row.Schema,
		Record:       row.Record,
		FallbackUsed: row.FallbackUsed,
		UpdatedAt:    row.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// SessionPDF renders the stored record. Project details are optional query
// parameters since the project itself lives with the form session.
func (h *Handle) SessionPDF(w http.ResponseWriter, r *http.Request) {
	row, ok := h.findSession(w, r)
	if !ok {
		return
	}
	schema, ok := fields.ByName(row.Schema)
	if !ok {
		schema = fields.Core()
	}
	q := r.URL.Query()
	doc := render.Document{
		Reference: dossier.NewReference(row.UpdatedAt),
		Created:   row.UpdatedAt,
		Record:    row.Record,
		Schema:    schema,
		Theme:     render.ThemeByName(q.Get("theme")),
		Project: dossier.Project{
			Adresse: q.Get("adresse"),
			Commune: q.Get("commune"),
			ZonePLU: q.Get("zone_plu"),
		},
	}
	var buf bytes.Buffer
	if err := render.PDF(&buf, doc); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Reference+`.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

type attemptResp struct {
	Model      string   `json:"model"`
	Outcome    string   `json:"outcome"`
	ModelCalls int      `json:"model_calls"`
	Missing    []string `json:"missing,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// SessionAttempts lists the audit trail of a session, newest first.
func (h *Handle) SessionAttempts(w http.ResponseWriter, r *http.Request) {
	if h.Attempts == nil {
		http.Error(w, "no attempt store configured", http.StatusNotImplemented)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	list, err := h.Attempts.ListBySession(r.Context(), id, limit)
	if err != nil {
		http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]attemptResp, 0, len(list))
	for _, a := range list {
		out = append(out, attemptResp{
			Model:      a.Profile,
			Outcome:    a.Outcome,
			ModelCalls: a.ModelCalls,
			Missing:    a.Missing,
			CreatedAt:  a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "attempts": out})
}

func (h *Handle) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if h.Records == nil {
		http.Error(w, "no record store configured", http.StatusNotImplemented)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	err := h.Records.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no record for session "+id, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
