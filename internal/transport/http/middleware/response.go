package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError replies with {"error": msg} so middleware rejections use the
// same envelope shape as handler errors.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
