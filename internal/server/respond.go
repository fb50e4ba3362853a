package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/spotstat/internal/services"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeRawJSON(w, status, data)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeText answers with a plain string, used for empty results.
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

func writeError(w http.ResponseWriter, status int, message string) {
	data, _ := json.Marshal(errorBody{StatusCode: status, Message: message})
	writeRawJSON(w, status, data)
}

// errorMessage prefers the provider's own message over the wrapped error text.
func errorMessage(err error) string {
	var reqErr *services.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	return err.Error()
}
