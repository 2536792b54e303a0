package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/ailogo/internal/apperror"
)

// Envelope codes. Application outcomes are always sent with HTTP 200; the
// code carries the result.
const (
	CodeOK                  = 0
	CodeInvalidParams       = 400
	CodeUnauthorized        = 401
	CodeInsufficientCredits = 402
	CodeForbidden           = 403
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeInternal            = 500
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Envelope is the shape of every API response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; nothing left but to log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: CodeOK, Message: "ok", Data: data})
}

// writeError maps err to an envelope code. Messages of internal errors never
// reach the client; they are logged instead.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code, message := classify(err)
	if code == CodeInternal {
		logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, Envelope{Code: code, Message: message})
}

func classify(err error) (int, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return CodeInternal, "internal error"
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return CodeInvalidParams, appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		return CodeUnauthorized, appErr.Message
	case errors.Is(err, apperror.ErrInsufficientCredits):
		return CodeInsufficientCredits, appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return CodeForbidden, appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return CodeNotFound, appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return CodeConflict, appErr.Message
	default:
		return CodeInternal, "internal error"
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("body", "request body too large")
	}
	return apperror.ValidationFailed("body", "invalid JSON body")
}
