package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/relaygate/errors"
	"github.com/kbukum/relaygate/logger"
)

// Recovery recovers from panics, logs the stack and answers 500 with the
// standard error envelope.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithContext(r.Context()).Error("Panic recovered", map[string]interface{}{
						"error":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					})
					appErr := apperrors.Internal(fmt.Errorf("panic: %v", rec))
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(appErr.HTTPStatus)
					_ = json.NewEncoder(w).Encode(appErr.ToResponse())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
