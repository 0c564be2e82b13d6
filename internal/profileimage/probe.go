package profileimage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProbeState is the outcome of the static asset probe.
type ProbeState int

const (
	ProbePending ProbeState = iota
	ProbeAvailable
	ProbeUnavailable
)

func (s ProbeState) String() string {
	switch s {
	case ProbeAvailable:
		return "available"
	case ProbeUnavailable:
		return "unavailable"
	default:
		return "pending"
	}
}

// MarshalText lets ProbeState appear by name in JSON responses.
func (s ProbeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Prober checks whether an asset path can be fetched.
type Prober interface {
	Probe(ctx context.Context, path string) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, path string) error

func (f ProberFunc) Probe(ctx context.Context, path string) error {
	return f(ctx, path)
}

// HTTPProber issues a GET against BaseURL+path and only looks at the status.
type HTTPProber struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProber returns a prober whose requests give up after timeout.
func NewHTTPProber(baseURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}
	// Body is discarded unread; drain a little so the connection can be reused.
	defer resp.Body.Close()
	io.CopyN(io.Discard, resp.Body, 512)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}
