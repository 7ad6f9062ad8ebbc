package opshttp

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/menmos/menmosd/pkg/log"
)

// withRequestLog wraps next so every operational HTTP request is logged
// with a request-scoped correlation id, the way a real transport layer
// would tag requests before they ever reach this core.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithComponent("opshttp").Debug().
			Str("request_id", requestID).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("operational request served")
	})
}
