package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// errorBody is the JSON error shape of the patient API.
type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeInternalError logs err and replies with a generic 500 so storage
// details never reach the client.
func writeInternalError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// wantsJSON reports whether the client expects a JSON reply instead of a
// redirect. Besides an explicit Accept header, script requests are detected:
// browsers mark fetch() with Sec-Fetch-Mode cors or same-origin (form
// submissions are "navigate") and XHR libraries set X-Requested-With.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	switch r.Header.Get("Sec-Fetch-Mode") {
	case "cors", "same-origin":
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
