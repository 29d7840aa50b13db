package handle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/normalize"
)

// --- NORMALIZE ---------------------------------------------------------------

type normalizeReq struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64"`
	RawReply  string `json:"raw_reply"`
	Model     string `json:"model" validate:"omitempty,max=32"`
	Schema    string `json:"schema" validate:"omitempty,oneof=core extended notice"`
	// Offline forbids the fallback call.
	Offline bool `json:"offline"`
}

func (h *Handle) Normalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req normalizeReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.RawReply) == "" {
		http.Error(w, "raw_reply is required", http.StatusBadRequest)
		return
	}
	p, ok := h.profile(req.Model)
	if !ok {
		http.Error(w, "unknown model: "+req.Model, http.StatusBadRequest)
		return
	}
	schema, _ := fields.ByName(req.Schema)

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	var opts []normalize.CallOption
	if req.Offline {
		opts = append(opts, normalize.WithoutFallback())
	}
	out := h.Normalizer.Normalize(ctx, req.RawReply, schema, p, opts...)
	h.persist(ctx, req.SessionID, p, out)
	writeJSON(w, statusFor(out), toResp(req.SessionID, p, out))
}
