package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"dp-normalizer/api/internal/analysis"
	"dp-normalizer/api/internal/dossier"
	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/normalize"
)

// --- ANALYZE -----------------------------------------------------------------

type analyzeReq struct {
	SessionID string          `json:"session_id" validate:"omitempty,max=64"`
	Model     string          `json:"model" validate:"omitempty,max=32"`
	Schema    string          `json:"schema" validate:"omitempty,oneof=core extended"`
	Project   dossier.Project `json:"project"`
	Before    []string        `json:"before" validate:"max=10,dive,required"`
	After     []string        `json:"after" validate:"max=10,dive,required"`
}

func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req analyzeReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Before)+len(req.After) == 0 {
		http.Error(w, "before or after photos are required", http.StatusBadRequest)
		return
	}
	p, ok := h.profile(req.Model)
	if !ok {
		http.Error(w, "unknown model: "+req.Model, http.StatusBadRequest)
		return
	}
	schema, _ := fields.ByName(req.Schema)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	out, err := h.Service.Analyze(ctx, analysis.Request{
		SessionID: req.SessionID,
		Profile:   p,
		Schema:    schema,
		Project:   req.Project,
		Before:    req.Before,
		After:     req.After,
	})
	if err != nil {
		http.Error(w, "analyze error: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.persist(ctx, req.SessionID, p, out)
	writeJSON(w, statusFor(out), toResp(req.SessionID, p, out))
}

// --- NOTICE ------------------------------------------------------------------

type noticeReq struct {
	SessionID string          `json:"session_id" validate:"omitempty,max=64"`
	Model     string          `json:"model" validate:"omitempty,max=32"`
	Project   dossier.Project `json:"project"`
}

func (h *Handle) Notice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req noticeReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Project.Description) == "" && strings.TrimSpace(req.Project.TypeTravaux) == "" {
		http.Error(w, "project.description or project.type_travaux is required", http.StatusBadRequest)
		return
	}
	p, ok := h.profile(req.Model)
	if !ok {
		http.Error(w, "unknown model: "+req.Model, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	out := h.Service.GenerateNotice(ctx, req.SessionID, p, req.Project)
	writeJSON(w, statusFor(out), toResp(req.SessionID, p, out))
}

// --- DESCRIBE PHOTO ----------------------------------------------------------

type describeReq struct {
	Photo  string `json:"photo" validate:"required"`
	Before bool   `json:"before"`
	Model  string `json:"model" validate:"omitempty,max=32"`
}

type describeResp struct {
	Description string `json:"description"`
}

func (h *Handle) DescribePhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req describeReq
	if err := json.NewDecoder(io.LimitReader(r.Body, 32<<20)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, ok := h.profile(req.Model)
	if !ok {
		http.Error(w, "unknown model: "+req.Model, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	text, err := h.Service.DescribePhoto(ctx, req.Photo, req.Before, p)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, normalize.ErrTransport) {
			code = http.StatusBadGateway
		}
		http.Error(w, "describe error: "+err.Error(), code)
		return
	}
	writeJSON(w, http.StatusOK, describeResp{Description: text})
}
