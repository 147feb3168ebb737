// Package api implements the core's single ingress endpoint and the
// external-collaborator read-only history/session query endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/lbbandit/lbbandit/internal/dispatcher"
	"github.com/lbbandit/lbbandit/internal/httputil"
	"github.com/lbbandit/lbbandit/internal/lberrors"
	"github.com/lbbandit/lbbandit/internal/lblog"
)

// DefaultMaxBodySize bounds the ingress request body; a 24-character id
// wrapped in JSON never approaches this, so it exists only to prevent
// abuse from a malformed or hostile client.
const DefaultMaxBodySize = 4096

// Dispatcher is the subset of *dispatcher.Dispatcher the ingress
// handler needs, narrowed so tests can substitute a fake.
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID string) (dispatcher.Result, error)
}

// Handler serves the ingress endpoint.
type Handler struct {
	dispatcher  Dispatcher
	logger      *lblog.Logger
	maxBodySize int64
}

// NewHandler creates an ingress Handler.
func NewHandler(d Dispatcher, logger *lblog.Logger) *Handler {
	return &Handler{dispatcher: d, logger: logger, maxBodySize: DefaultMaxBodySize}
}

type ingressRequest struct {
	ID string `json:"id"`
}

type ingressResponse struct {
	Status string `json:"status"`
}

// ServeHTTP implements the single ingress endpoint: POST body
// {"id": <24-char alphanumeric>}, responding {"status":"ok"} on
// eventual success or {"status":"error"} on final failure, both HTTP
// 200. A malformed id is rejected with HTTP 422 before it ever reaches
// the dispatcher.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	body, err := httputil.ReadLimitedBody(r.Body, h.maxBodySize)
	if err != nil {
		h.writeStatus(w, http.StatusUnprocessableEntity, "error")
		return
	}

	var req ingressRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeStatus(w, http.StatusUnprocessableEntity, "error")
		return
	}
	validID := len(req.ID) == 24
	for _, c := range req.ID {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			validID = false
		}
	}
	if !validID {
		h.writeStatus(w, http.StatusUnprocessableEntity, "error")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	res, err := h.dispatcher.Dispatch(ctx, req.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Debug("rejected request id", "error", err)
		}
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, lberrors.ErrInvalidRequestID) {
			status = http.StatusInternalServerError
		}
		h.writeStatus(w, status, "error")
		return
	}

	if res.Success {
		h.writeStatus(w, http.StatusOK, "ok")
	} else {
		h.writeStatus(w, http.StatusOK, "error")
	}
}

func (h *Handler) writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ingressResponse{Status: status})
}
