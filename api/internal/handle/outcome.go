package handle

import (
	"context"
	"net/http"

	"dp-normalizer/api/internal/fields"
	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/logger"
	"dp-normalizer/api/internal/normalize"
	"dp-normalizer/api/internal/store"
)

type failureResp struct {
	Kind    string   `json:"kind"`
	Cause   string   `json:"cause,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
	Error   string   `json:"error"`
}

type outcomeResp struct {
	SessionID    string            `json:"session_id,omitempty"`
	OK           bool              `json:"ok"`
	Model        string            `json:"model"`
	Schema       string            `json:"schema"`
	Record       fields.Record     `json:"record,omitempty"`
	Failure      *failureResp      `json:"failure,omitempty"`
	FallbackUsed bool              `json:"fallback_used"`
	ModelCalls   int               `json:"model_calls"`
	Trace        []normalize.State `json:"trace"`
	Dropped      []string          `json:"dropped,omitempty"`
	// Retry tells the UI to offer the user another attempt.
	Retry bool `json:"retry"`
}

func toResp(sessionID string, p llm.Profile, o normalize.Outcome) outcomeResp {
	resp := outcomeResp{
		SessionID:    sessionID,
		OK:           o.OK(),
		Model:        p.Key,
		Schema:       o.Schema,
		Record:       o.Record,
		FallbackUsed: o.FallbackUsed,
		ModelCalls:   o.ModelCalls,
		Trace:        o.Trace,
		Dropped:      o.Dropped,
	}
	if f := o.Failure; f != nil {
		resp.Failure = &failureResp{Kind: f.Kind.String(), Missing: f.Missing, Invalid: f.Invalid, Error: f.Error()}
		if f.Cause != 0 {
			resp.Failure.Cause = f.Cause.String()
		}
		resp.Retry = true
	}
	return resp
}

// statusFor maps an outcome onto the HTTP status returned to the UI.
func statusFor(o normalize.Outcome) int {
	switch o.Kind() {
	case 0:
		return http.StatusOK
	case normalize.TransportError:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// persist stores a successful record and the attempt. Storage errors are
// logged; the outcome is still returned to the caller.
func (h *Handle) persist(ctx context.Context, sessionID string, p llm.Profile, o normalize.Outcome) {
	log := logger.FromContext(ctx)
	if h.Attempts != nil && sessionID != "" {
		a := store.Attempt{SessionID: sessionID, Profile: p.Key, Outcome: "success", ModelCalls: o.ModelCalls}
		if f := o.Failure; f != nil {
			a.Outcome = f.Kind.String()
			a.Missing = f.Missing
		}
		if err := h.Attempts.Insert(ctx, a); err != nil {
			log.Error("store attempt", "session", sessionID, "error", err)
		}
	}
	if h.Records == nil || sessionID == "" || !o.OK() {
		return
	}
	row := store.RecordRow{SessionID: sessionID, Profile: p.Key, Schema: o.Schema, Record: o.Record, FallbackUsed: o.FallbackUsed}
	if err := h.Records.Upsert(ctx, row); err != nil {
		log.Error("store record", "session", sessionID, "error", err)
	}
}
