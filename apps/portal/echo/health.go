package echoportal

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darasa/portal/core/health"
)

type healthApi struct {
	monitor *health.Monitor
}

func registerHealthAPI(g *echo.Group, monitor *health.Monitor) {
	api := healthApi{monitor: monitor}
	g.GET("/api/health", api.check)
}

// check probes the school API right now and reports the result. Degraded
// states answer 503 so load balancers and the error page's retry loop read
// the same signal. A timed-out probe is a result, never a pending state.
func (api *healthApi) check(ctx echo.Context) error {
	st := api.monitor.CheckNow(ctx.Request().Context())

	code := http.StatusOK
	status := "healthy"
	if !st.Healthy() {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}

	return ctx.JSON(code, HealthResponse{
		Status:    status,
		API:       st.APIReachable,
		Auth:      st.AuthHealthy,
		LatencyMS: st.Latency.Milliseconds(),
		Timestamp: st.CheckedAt,
	})
}

type HealthResponse struct {
	Status    string    `json:"status"`
	API       bool      `json:"api"`
	Auth      bool      `json:"auth"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
