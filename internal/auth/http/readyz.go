package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/pkg/authsdk"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
)

const readyzTimeout = 2 * time.Second

// pinger is implemented by rate limit backends with a remote dependency.
type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Reports whether the store answers, the signing key is loaded and, for the redis backend, the rate limiter is reachable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
	limits httpx.Backend,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		checks := &authsdk.HealthChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK
		degrade := func() {
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := st.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			degrade()
		}

		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			degrade()
		}

		if p, ok := limits.(pinger); ok {
			checks.RateLimiter = "ok"
			if err := p.Ping(ctx); err != nil {
				checks.RateLimiter = "error: " + err.Error()
				degrade()
			}
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
