package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard {error, message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:   model.ErrorKind(status),
		Message: message,
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// classifyError maps service and store errors to an HTTP status and a
// client-safe message.
func classifyError(err error, fallbackMsg string) (int, string) {
	switch {
	case errors.Is(err, config.ErrNotFound):
		return http.StatusNotFound, fallbackMsg + ": not found"
	case errors.Is(err, config.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, tools.ErrInvalidArguments):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, fallbackMsg + ": forbidden"
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, fallbackMsg
	}
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
