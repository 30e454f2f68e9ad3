package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"portal/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response. The request id
// is logged with the stack and echoed in the body so a client report can be
// matched to the log line. http.ErrAbortHandler is re-raised for net/http.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				requestID := httputil.GetRequestID(r)
				logger.Error("panic recovered",
					"request_id", requestID,
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				var extras map[string]any
				if requestID != "" {
					extras = map[string]any{"request_id": requestID}
				}
				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error", extras)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
