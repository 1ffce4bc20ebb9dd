package transport

import (
	"encoding/json"
	"net/http"
)

// Error codes let clients tell failures apart without parsing messages.
const (
	CodeValidation   = "validation_error"
	CodeSlotConflict = "slot_conflict"
	CodeNotFound     = "not_found"
	CodeGateway      = "gateway_error"
	CodeInternal     = "internal_error"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string, details map[string]string) {
	WriteErrorCode(w, status, "", message, details)
}

func WriteErrorCode(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
