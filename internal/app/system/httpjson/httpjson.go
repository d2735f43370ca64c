// internal/app/system/httpjson/httpjson.go
package httpjson

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies read through Decode.
const maxBodyBytes = 1 << 20

// Write encodes v as the JSON response body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent responds 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads the request body into dst. It rejects oversized bodies and
// returns the decoder's error unchanged so callers can surface a 400.
func Decode(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}
