package server

import (
	"encoding/json"
	"net/http"
)

type errorCode string

const (
	errCodeInvalidRequest errorCode = "invalid_request"
	errCodeUnauthorized   errorCode = "unauthorized"
	errCodeNotFound       errorCode = "not_found"
	errCodeInternal       errorCode = "internal_error"
)

type apiError struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code errorCode, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
