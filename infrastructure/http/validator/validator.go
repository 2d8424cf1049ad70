package validator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	domainerror "github.com/fixora/gatekeeper/domain/error"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from r into dst. Unknown fields
// are rejected.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return decode(r, dst, true)
}

// DecodeOptionalJSON is DecodeJSON for endpoints where the body may be
// omitted. An empty body leaves dst untouched, whatever Content-Length
// the client sent.
func DecodeOptionalJSON(r *http.Request, dst interface{}) error {
	return decode(r, dst, false)
}

func decode(r *http.Request, dst interface{}, required bool) error {
	if r.Body == nil {
		if required {
			return domainerror.ErrInvalidRequest("Request body is required")
		}
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if !required {
				return nil
			}
			return domainerror.ErrInvalidRequest("Request body is required")
		}
		return domainerror.ErrInvalidRequest("Invalid request body")
	}
	return nil
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is absent or malformed.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	token := strings.TrimSpace(parts[1])
	// Kompak JWT harus memiliki 3 bagian yang dipisahkan oleh titik
	if strings.Count(token, ".") != 2 {
		return ""
	}
	return token
}
