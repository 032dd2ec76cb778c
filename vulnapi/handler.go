// Package vulnapi exposes the evaluator as an HTTP service.
package vulnapi

import (
	"encoding/json"
	"net/http"

	"github.com/quay/zlog"

	je "github.com/jdobes/vmaas-oval/pkg/jsonerr"

	"github.com/jdobes/vmaas-oval/evaluator"
)

var _ http.Handler = (*HTTP)(nil)

// HTTP wraps an [*evaluator.Service] in an http.Handler exposing a single
// endpoint.
type HTTP struct {
	*http.ServeMux
	svc *evaluator.Service
}

// NewHandler returns an HTTP handler backed by svc.
func NewHandler(svc *evaluator.Service) *HTTP {
	h := &HTTP{svc: svc}
	m := http.NewServeMux()
	m.HandleFunc("/vulnerabilities", h.Vulnerabilities)
	h.ServeMux = m
	return h
}

// Vulnerabilities handles POST /vulnerabilities: decode a profile, evaluate
// it, and return the resulting CVE lists as JSON.
func (h *HTTP) Vulnerabilities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		je.Error(w, &je.Response{Error: "endpoint only allows POST"}, http.StatusMethodNotAllowed)
		return
	}

	var profile evaluator.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		zlog.Debug(ctx).Err(err).Msg("could not decode request body")
		je.Error(w, &je.Response{Error: "Request is not a JSON."}, http.StatusBadRequest)
		return
	}

	result, err := h.svc.Evaluate(ctx, profile)
	if err != nil {
		zlog.Error(ctx).Err(err).Msg("evaluation failed")
		je.Error(w, &je.Response{Error: "internal error"}, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&result); err != nil {
		// Can't change header or write a different response, since we've
		// already started writing one.
		zlog.Warn(ctx).Err(err).Msg("failed to encode response")
	}
}
