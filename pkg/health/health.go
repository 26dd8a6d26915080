// Package health implements the /livez and /readyz probes. Registered
// checks are evaluated periodically by a single background goroutine;
// probe state is damped so one slow upstream response does not flip the
// service unhealthy.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the probed component is healthy.
type CheckFunc func(ctx context.Context) error

// failThreshold is the number of consecutive failures before a probe turns
// unhealthy. A single success turns it healthy again.
const failThreshold = 3

type probeState struct {
	healthy bool
	err     error
}

// probe couples a check with its damped state. The state pointer is
// swapped atomically so the HTTP handlers never see a half-written update;
// the failure counter is touched only by the evaluation goroutine.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	state atomic.Pointer[probeState]
	fails int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.state.Store(&probeState{healthy: true})
	return p
}

// run evaluates the probe once and applies the damping thresholds.
func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.check(checkCtx)
	cancel()

	if err == nil {
		p.fails = 0
		p.state.Store(&probeState{healthy: true})
		return
	}
	p.fails++
	p.state.Store(&probeState{
		healthy: p.fails < failThreshold,
		err:     err,
	})
}

// Health aggregates liveness and readiness probes. The service starts not
// ready; call SetReady(true) once startup completes and SetReady(false) to
// drain traffic ahead of shutdown.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check backing the /livez endpoint. Liveness
// failures mean the process itself is broken, e.g. a goroutine leak.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a check backing the /readyz endpoint.
// Readiness failures mean the service cannot usefully serve traffic right
// now, e.g. the remote catalog is unreachable.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Start evaluates every registered probe once immediately and then again on
// each tick of interval, all from one goroutine, until Stop is called or
// ctx is cancelled. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.liveness)+len(h.readiness))
	probes = append(probes, h.liveness...)
	probes = append(probes, h.readiness...)
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			for _, p := range probes {
				p.run(ctx)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the evaluation goroutine. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate checked by ReadyEndpoint.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness probe is healthy,
// 503 with the failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	probes := append([]*probe(nil), h.liveness...)
	h.mu.Unlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 while the service is marked ready and
// every readiness probe is healthy, 503 with the failures otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	probes := append([]*probe(nil), h.readiness...)
	h.mu.Unlock()

	fails := failures(probes)
	if !h.ready.Load() {
		fails["service"] = "not ready"
	}
	writeStatus(w, fails)
}

func failures(probes []*probe) map[string]string {
	fails := make(map[string]string)
	for _, p := range probes {
		st := p.state.Load()
		if st.healthy {
			continue
		}
		msg := "unhealthy"
		if st.err != nil {
			msg = st.err.Error()
		}
		fails[p.name] = msg
	}
	return fails
}

func writeStatus(w http.ResponseWriter, fails map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(fails) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = fails
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
