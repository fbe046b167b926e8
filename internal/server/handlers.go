package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vipspot/contact-relay/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", requestIDFrom(r.Context()))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleContact serves both /contact and /booking: the booking form posts
// the same payload to the same pipeline.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	rid := requestIDFrom(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", rid)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit)

	var req models.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "bad_input", "Body too large", rid)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_input", "Bad request", rid)
		return
	}

	// The body correlation id is the idempotency key; fall back to the
	// header-derived id so every submission has one.
	if req.RequestID == "" {
		req.RequestID = rid
	}

	switch res := s.contacts.Handle(r.Context(), req, clientIP(r)).(type) {
	case models.Accepted:
		writeJSON(w, http.StatusOK, okResponse{OK: true, TicketID: res.TicketID, RequestID: res.RequestID})
	case models.Duplicate:
		writeJSON(w, http.StatusOK, okResponse{OK: true, TicketID: res.TicketID, RequestID: res.RequestID, Idempotent: true})
	case models.Suppressed:
		// Deliberately empty: a bot learns nothing from this response.
		w.WriteHeader(http.StatusNoContent)
	case models.RejectedTooFast:
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, errResponse{
			Code:       "too_fast",
			Message:    "Too fast",
			RetryAfter: res.RetryAfter,
			RequestID:  req.RequestID,
		})
	case models.RejectedInvalid:
		writeError(w, http.StatusBadRequest, "bad_input", res.Reason, req.RequestID)
	case models.RejectedRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
		writeTooFast(w, res.RetryAfter, req.RequestID)
	case models.ServerError:
		writeError(w, http.StatusInternalServerError, "server_error", "Internal error", res.RequestID)
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "Internal error", rid)
	}
}
