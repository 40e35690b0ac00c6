package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AddressFunc resolves a target to the base URL of its liveness endpoint,
// e.g. "http://172.18.0.3:8000/health". The docker package supplies an
// implementation that inspects the running container.
type AddressFunc func(ctx context.Context, target string) (string, error)

// HTTPProber probes a target over HTTP. A 2xx response is Healthy, any
// other status is Unhealthy, and transport errors (including the
// per-attempt timeout) are Unreachable.
type HTTPProber struct {
	Resolve AddressFunc
	Client  *http.Client
}

func NewHTTPProber(resolve AddressFunc) *HTTPProber {
	return &HTTPProber{
		Resolve: resolve,
		Client:  &http.Client{},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, target string) Result {
	observed := time.Now()

	url, err := p.Resolve(ctx, target)
	if err != nil {
		return Result{
			Outcome:    Unreachable,
			ObservedAt: observed,
			Message:    fmt.Sprintf("failed to resolve probe address: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Outcome:    Unreachable,
			ObservedAt: observed,
			Message:    fmt.Sprintf("failed to create probe request: %v", err),
		}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "probe timed out"
		}
		return Result{Outcome: Unreachable, ObservedAt: observed, Message: msg}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Outcome: Healthy, ObservedAt: observed}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return Result{
		Outcome:    Unhealthy,
		ObservedAt: observed,
		Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
	}
}
