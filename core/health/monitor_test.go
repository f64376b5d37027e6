package health

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/darasa/portal/core"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

func (m *fakeMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		subs = append(subs, msg.Subject)
	}
	return subs
}

func monitorConf() *core.Config {
	return &core.Config{
		AppName:     "Portal",
		AlertsEmail: mail.Address{Name: "Ops", Address: "ops@test.test"},
		Upstream:    core.UpstreamConfig{ProbeTimeout: 200 * time.Millisecond},
		Health:      core.HealthConfig{Interval: time.Hour},
	}
}

func TestMonitorTransitionAlerts(t *testing.T) {
	errDown := errors.New("connection refused")
	prober := &fakeProber{}
	mailer := &fakeMailer{}
	mon := NewMonitor(prober, mailer, core.NopLogger{}, monitorConf())
	ctx := context.Background()

	// healthy -> healthy: quiet
	if st := mon.CheckNow(ctx); !st.Healthy() {
		t.Fatalf("CheckNow() = %+v, want healthy", st)
	}
	if got := mailer.subjects(); len(got) != 0 {
		t.Errorf("alerts after healthy check = %v, want none", got)
	}

	// healthy -> degraded: one alert
	prober.set(errDown, nil)
	if st := mon.CheckNow(ctx); st.Healthy() {
		t.Fatalf("CheckNow() = %+v, want degraded", st)
	}
	if got := mailer.subjects(); len(got) != 1 || got[0] != "School API degraded" {
		t.Errorf("alerts = %v, want [School API degraded]", got)
	}

	// degraded -> degraded: no repeat
	mon.CheckNow(ctx)
	if got := mailer.subjects(); len(got) != 1 {
		t.Errorf("alerts = %v, want no repeat while still degraded", got)
	}

	// degraded -> healthy: recovery alert
	prober.set(nil, nil)
	mon.CheckNow(ctx)
	if got := mailer.subjects(); len(got) != 2 || got[1] != "School API recovered" {
		t.Errorf("alerts = %v, want recovery appended", got)
	}
}

func TestMonitorLatestNeverBlocks(t *testing.T) {
	// probes hang well past the deadline; Latest must still answer instantly
	prober := &fakeProber{apiDelay: time.Minute, authDelay: time.Minute}
	mon := NewMonitor(prober, &fakeMailer{}, core.NopLogger{}, monitorConf())

	done := make(chan Status, 1)
	go func() { done <- mon.Latest() }()
	select {
	case st := <-done:
		if !st.Healthy() {
			t.Errorf("Latest() before first probe = %+v, want optimistic seed", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Latest() blocked")
	}
}

func TestMonitorPoke(t *testing.T) {
	prober := &fakeProber{}
	mon := NewMonitor(prober, &fakeMailer{}, core.NopLogger{}, monitorConf())

	// never blocks, even with no Run loop draining it
	for i := 0; i < 3; i++ {
		mon.Poke()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mon.Run(ctx)

	// wait for the initial probe
	waitFor(t, func() bool { return prober.callCount() >= 1 })

	// fresh result: a poke must not trigger another probe
	mon.Poke()
	time.Sleep(50 * time.Millisecond)
	if n := prober.callCount(); n != 1 {
		t.Errorf("probe count after poke on fresh result = %d, want 1", n)
	}

	// age the result out, then poke again
	mon.mu.Lock()
	mon.latest.CheckedAt = time.Now().Add(-2 * time.Hour)
	mon.mu.Unlock()
	mon.Poke()
	waitFor(t, func() bool { return prober.callCount() >= 2 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
