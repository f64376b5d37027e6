package health

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/darasa/portal/core"
)

// Monitor keeps the latest Status current in the background so request-path
// readers never wait on a probe. Healthy/degraded transitions go out as
// alert emails.
type Monitor struct {
	prober Prober
	mail   core.EmailService
	logger core.Logger
	conf   *core.Config

	mu     sync.RWMutex
	latest Status

	poke chan struct{}
}

func NewMonitor(prober Prober, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Monitor {
	return &Monitor{
		prober: prober,
		mail:   mailSvc,
		logger: logger,
		conf:   conf,
		// optimistic until the first probe lands; avoids a spurious boot alert
		latest: Status{APIReachable: true, AuthHealthy: true, CheckedAt: time.Now().UTC()},
		poke:   make(chan struct{}, 1),
	}
}

// Run loops until the context is canceled. Call it from its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.conf.Health.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		case <-m.poke:
			// only probe on demand when the last result has gone stale
			if time.Since(m.Latest().CheckedAt) >= m.conf.Health.Interval {
				m.CheckNow(ctx)
			}
		}
	}
}

// Latest returns the most recent Status without probing.
func (m *Monitor) Latest() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Poke requests an out-of-band probe. It never blocks; guard evaluations
// call it on every protected request.
func (m *Monitor) Poke() {
	select {
	case m.poke <- struct{}{}:
	default:
	}
}

// CheckNow probes synchronously, records the result and fires transition
// alerts. The /api/health handler uses it for a live answer.
func (m *Monitor) CheckNow(ctx context.Context) Status {
	st := Check(ctx, m.prober, m.conf.Upstream.ProbeTimeout)

	m.mu.Lock()
	prev := m.latest
	m.latest = st
	m.mu.Unlock()

	switch {
	case prev.Healthy() && !st.Healthy():
		m.logger.Error(fmt.Sprintf("school API degraded: api=%t auth=%t", st.APIReachable, st.AuthHealthy))
		m.sendAlert("School API degraded", st)
	case !prev.Healthy() && st.Healthy():
		m.logger.Info("school API recovered")
		m.sendAlert("School API recovered", st)
	}
	return st
}

func (m *Monitor) sendAlert(subject string, st Status) {
	if m.mail == nil || m.conf.AlertsEmail.Address == "" {
		return
	}
	body := fmt.Sprintf(
		"api reachable: %t\nauth healthy: %t\nlatency: %s\nchecked at: %s\n",
		st.APIReachable, st.AuthHealthy, st.Latency, st.CheckedAt.Format(time.RFC3339),
	)
	m.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{m.conf.AlertsEmail},
		Subject: subject,
		BodyStr: body,
	})
}
