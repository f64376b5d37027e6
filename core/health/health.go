// Package health probes the school API and keeps the portal's view of its
// availability. A probe always lands on a definitive answer: a timed-out
// check is an unhealthy result, never a pending one.
package health

import (
	"context"
	"time"
)

// Status is one probe result. Ephemeral: recomputed on every probe and
// never persisted.
type Status struct {
	APIReachable bool          // the sessions listing answered the HEAD probe
	AuthHealthy  bool          // the auth subsystem produced a definitive answer
	Latency      time.Duration // round-trip of the reachability probe
	CheckedAt    time.Time     // UTC
}

func (s Status) Healthy() bool {
	return s.APIReachable && s.AuthHealthy
}

// AuthDegraded reports the one state the route guard cares about specially:
// the API answers but its auth subsystem does not.
func (s Status) AuthDegraded() bool {
	return s.APIReachable && !s.AuthHealthy
}

// Prober issues the two upstream probes.
type Prober interface {
	// ProbeAPI HEADs the sessions listing and reports the round-trip time.
	// Any response counts as reachable; only transport failures error.
	ProbeAPI(ctx context.Context) (time.Duration, error)
	// ProbeAuth sends an unauthenticated canary to the auth subsystem.
	// A definitive answer (200 or 401) is nil; timeouts and 5xx error.
	ProbeAuth(ctx context.Context) error
}

// Check runs both probes concurrently under one deadline.
func Check(ctx context.Context, p Prober, timeout time.Duration) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type apiResult struct {
		latency time.Duration
		err     error
	}
	apiCh := make(chan apiResult, 1)
	authCh := make(chan error, 1)

	go func() {
		latency, err := p.ProbeAPI(ctx)
		apiCh <- apiResult{latency: latency, err: err}
	}()
	go func() {
		authCh <- p.ProbeAuth(ctx)
	}()

	st := Status{CheckedAt: time.Now().UTC()}
	res := <-apiCh
	st.APIReachable = res.err == nil
	st.Latency = res.latency
	st.AuthHealthy = <-authCh == nil
	return st
}
