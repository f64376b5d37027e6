package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeProber struct {
	mu        sync.Mutex
	apiErr    error
	authErr   error
	apiDelay  time.Duration
	authDelay time.Duration
	latency   time.Duration
	calls     int
}

func (p *fakeProber) set(apiErr, authErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiErr = apiErr
	p.authErr = authErr
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProber) ProbeAPI(ctx context.Context) (time.Duration, error) {
	p.mu.Lock()
	p.calls++
	delay, latency, err := p.apiDelay, p.latency, p.apiErr
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return latency, err
}

func (p *fakeProber) ProbeAuth(ctx context.Context) error {
	p.mu.Lock()
	delay, err := p.authDelay, p.authErr
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func TestCheck(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name     string
		prober   *fakeProber
		wantAPI  bool
		wantAuth bool
	}{
		{name: "all healthy", prober: &fakeProber{latency: 12 * time.Millisecond}, wantAPI: true, wantAuth: true},
		{name: "api unreachable", prober: &fakeProber{apiErr: errDown}, wantAPI: false, wantAuth: true},
		{name: "auth subsystem down", prober: &fakeProber{authErr: errDown}, wantAPI: true, wantAuth: false},
		{name: "everything down", prober: &fakeProber{apiErr: errDown, authErr: errDown}, wantAPI: false, wantAuth: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Check(context.Background(), tt.prober, time.Second)
			if st.APIReachable != tt.wantAPI {
				t.Errorf("Check() APIReachable = %v, want %v", st.APIReachable, tt.wantAPI)
			}
			if st.AuthHealthy != tt.wantAuth {
				t.Errorf("Check() AuthHealthy = %v, want %v", st.AuthHealthy, tt.wantAuth)
			}
			if st.CheckedAt.IsZero() {
				t.Error("Check() CheckedAt is zero")
			}
		})
	}
}

// A hung upstream must produce an unhealthy result within the deadline,
// never an answer that waits on the probe.
func TestCheckTimeout(t *testing.T) {
	prober := &fakeProber{apiDelay: 5 * time.Second, authDelay: 5 * time.Second}

	start := time.Now()
	st := Check(context.Background(), prober, 50*time.Millisecond)
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Check() took %s, want well under the probe delay", elapsed)
	}
	if st.APIReachable {
		t.Error("Check() APIReachable = true, want false on timeout")
	}
	if st.AuthHealthy {
		t.Error("Check() AuthHealthy = true, want false on timeout")
	}
	if st.Healthy() {
		t.Error("Check() Healthy() = true, want false on timeout")
	}
}

func TestStatusAuthDegraded(t *testing.T) {
	tests := []struct {
		name string
		st   Status
		want bool
	}{
		{name: "healthy", st: Status{APIReachable: true, AuthHealthy: true}, want: false},
		{name: "auth only down", st: Status{APIReachable: true, AuthHealthy: false}, want: true},
		{name: "api down", st: Status{APIReachable: false, AuthHealthy: false}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.AuthDegraded(); got != tt.want {
				t.Errorf("AuthDegraded() = %v, want %v", got, tt.want)
			}
		})
	}
}
