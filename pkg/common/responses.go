package common

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the `{"message": ...}` body used by the info and
// create endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON writes data as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondMessage writes a `{"message": ...}` body.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, MessageResponse{Message: message})
}

// RespondRaw writes pre-encoded JSON as-is. Used where a backend's own JSON
// (the ledger index value, the graph schema result) passes straight through.
func RespondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
