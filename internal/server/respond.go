package server

import (
	"encoding/json"
	"net/http"
)

// okResponse is the success body for accepted and duplicate submissions.
type okResponse struct {
	OK         bool   `json:"ok"`
	TicketID   string `json:"ticketId,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

// errResponse is the single error shape every failure path funnels through.
type errResponse struct {
	OK         bool   `json:"ok"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message, rid string) {
	writeJSON(w, status, errResponse{Code: code, Message: message, RequestID: rid})
}

func writeTooFast(w http.ResponseWriter, retryAfter int, rid string) {
	writeJSON(w, http.StatusTooManyRequests, errResponse{
		Code:       "too_fast",
		Message:    "Too many requests",
		RetryAfter: retryAfter,
		RequestID:  rid,
	})
}
