// Package jsonerr provides a uniform JSON error body for HTTP handlers.
package jsonerr

import (
	"encoding/json"
	"net/http"
)

// Response is the body written for a non-2xx response.
type Response struct {
	Error string `json:"error"`
}

// Error writes r as a JSON body with the given status code. Like
// http.Error, callers still need a naked return after calling this.
func Error(w http.ResponseWriter, r *Response, httpcode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpcode)
	b, _ := json.Marshal(r)
	w.Write(b)
}
