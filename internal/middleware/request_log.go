package middleware

import (
	"context"
	"net/http"
	"time"

	"medical-records-sharing/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const errorKey ctxKey = "request_error"

type requestError struct {
	err error
}

// SetError deja err para la línea de log del request; gana el primero.
// Sin RequestLogger en la cadena no hace nada.
func SetError(ctx context.Context, err error) {
	h, ok := ctx.Value(errorKey).(*requestError)
	if !ok || err == nil || h.err != nil {
		return
	}
	h.err = err
}

// RequestLogger registra una línea por request (sin body ni headers de auth).
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			reqErr := &requestError{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), errorKey, reqErr)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
			}
			if reqErr.err != nil {
				fields["error"] = reqErr.err.Error()
			}
			switch {
			case status >= 500:
				log.Error("request", fields)
			case status >= 400:
				log.Warn("request", fields)
			default:
				log.Info("request", fields)
			}
		})
	}
}

// Recoverer convierte un panic en 500 y lo deja en el log.
func Recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", map[string]any{
					"panic":      rec,
					"path":       r.URL.Path,
					"request_id": chimw.GetReqID(r.Context()),
				})
				http.Error(w, "internal error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
