package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// MaxJSONBody bounds request bodies read by DecodeJSON. WebAuthn attestation
// objects are the largest payloads we accept.
const MaxJSONBody = 64 << 10

var ErrUnsupportedMediaType = errors.New("httpx: content type must be application/json")

// WriteJSON writes v as JSON with the given status code and no-cache headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as non-cacheable (tokens, codes, challenges).
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ReadJSONBody returns the raw request body after checking the content type.
// An empty Content-Type is accepted.
func ReadJSONBody(r *http.Request) ([]byte, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return nil, ErrUnsupportedMediaType
		}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxJSONBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxJSONBody {
		return nil, fmt.Errorf("httpx: body exceeds %d bytes", MaxJSONBody)
	}
	return body, nil
}

// DecodeJSON reads the body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	body, err := ReadJSONBody(r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
