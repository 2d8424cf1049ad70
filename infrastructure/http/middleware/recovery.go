package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fixora/gatekeeper/infrastructure/http/response"
	"github.com/fixora/gatekeeper/infrastructure/service/logger"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error(r.Context(), "Panic recovered", fmt.Errorf("%v", rec), map[string]interface{}{
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					})
					response.InternalServerError(w, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
