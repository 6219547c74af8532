package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/messenger/pkg/authsdk"
	"github.com/aussiebroadwan/messenger/pkg/httpx"
)

// Pinger reports database reachability. store.Store implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backlog reports how many accounts are waiting to be persisted.
type Backlog interface {
	Len() int
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, database status, the write queue backlog and the number of pending codes
//	@Description	A write queue backlog alone does not make the service unready
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(
	startTime time.Time,
	version string,
	db Pinger,
	queue Backlog,
	codes Backlog,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database:   "ok",
			WriteQueue: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		// Check database connectivity
		if err := db.Ping(ctx); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if n := queue.Len(); n > 0 {
			checks.WriteQueue = fmt.Sprintf("%d pending", n)
		}
		checks.PendingCodes = codes.Len()

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
