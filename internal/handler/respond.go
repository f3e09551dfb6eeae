package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medtrack/medtrack-go/internal/middleware"
	"github.com/medtrack/medtrack-go/internal/service"
)

const maxJSONBody = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// decodeJSON reads a size-capped JSON body into dst and writes the error
// response itself when decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP responses. Errors matching
// one of notFound become 404; anything unrecognised is logged and hidden
// behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound ...error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Fields))
		for name, ferr := range ve.Fields {
			fields[name] = ferr.Error()
		}
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: fields})
		return
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
			return
		}
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
}

// requireUser returns the authenticated user ID or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
	}
	return userID, ok
}

// pathID parses the {id} URL parameter. Malformed ids cannot name an
// existing record, so they are reported as 404.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
		return 0, false
	}
	return id, true
}
