package middleware

import (
	"encoding/json"
	"net/http"
)

// deny ends the request with the same {"error": msg} body the handlers
// use. 401s also carry a Bearer challenge.
func deny(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{msg})
}
