package handle

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"dp-normalizer/api/internal/prompt"
)

type updatePromptReq struct {
	Profile string `json:"profile" validate:"required,max=32"`
	Kind    string `json:"kind" validate:"required"`
	Text    string `json:"text" validate:"required,max=65536"`
}

type updatePromptResp struct {
	OK      bool   `json:"ok"`
	Profile string `json:"profile"`
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Updated string `json:"updated"`
}

// UpdateSystemPrompt stores a system instruction override for one profile
// and prompt kind.
func (h *Handle) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req updatePromptReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := prompt.ParseKind(req.Kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := h.Profiles.Lookup(req.Profile); !ok {
		http.Error(w, "unknown model: "+req.Profile, http.StatusBadRequest)
		return
	}
	path, err := h.Prompts.Save(req.Profile, kind, req.Text)
	if err != nil {
		http.Error(w, "save prompt: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updatePromptResp{
		OK:      true,
		Profile: req.Profile,
		Kind:    string(kind),
		Path:    path,
		Size:    len(req.Text),
		Updated: time.Now().UTC().Format(time.RFC3339),
	})
}
