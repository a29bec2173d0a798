package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/ecommerce-admin/pkg/logger"
)

// AdminResolver names the administrator behind the current console session,
// or "" when nobody is signed in.
type AdminResolver func(ctx context.Context) string

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, admin, trace_id and span_id. Handlers read it back with
// logger.FromContext.
//
// Mount it after RequestLogging and Tracing so both ids are already set.
// resolve may be nil.
func RequestLogger(base *slog.Logger, resolve AdminResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if resolve != nil {
				if admin := resolve(ctx); admin != "" {
					ctx = logger.WithAdmin(ctx, admin)
				}
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
