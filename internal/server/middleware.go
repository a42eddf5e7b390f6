package server

import (
	"net/http"

	"github.com/google/uuid"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware tags every request with an id, honoring one the
// caller already set, and scopes the context logger to it.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
