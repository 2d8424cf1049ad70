package middleware

import (
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

const CorrelationIDHeader = "X-Correlation-ID"

const maxCorrelationIDLength = 128

// CorrelationIDMiddleware ensures every request/response carries a correlation ID
// and makes it available to the logger through the request context.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(CorrelationIDHeader)
		if cid == "" || len(cid) > maxCorrelationIDLength {
			cid = ulid.Make().String()
		}
		w.Header().Set(CorrelationIDHeader, cid)
		next.ServeHTTP(w, r.WithContext(logger.WithCorrelationID(r.Context(), cid)))
	})
}
