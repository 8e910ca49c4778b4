package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ClientConfig configures a breaker-guarded HTTP client.
type ClientConfig struct {
	// Name identifies the backend in the registry and breaker.
	Name string

	// Timeout bounds each request, including reading the body.
	// Default: 10 seconds
	Timeout time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, if set, receives the outcome of every request.
	Registry *Registry

	// Transport is the underlying round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client sends each request exactly once through a circuit breaker. It does
// not retry: a failed store call is answered from the fallback dataset.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *Breaker[*http.Response]
}

// NewClient creates a Client and registers its breaker under cfg.Name.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
		cbConfig.Name = cfg.Name
	}

	return &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		breaker: NewBreaker[*http.Response](cbConfig, cfg.Registry), //nolint:bodyclose // type param, not a response
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req once. A 5xx response counts as a breaker failure but is still
// returned, with a nil error, so the caller can read the body. The caller
// closes the body. ErrCircuitOpen means the request was not sent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var serverResp *http.Response
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.httpClient.Do(req) //nolint:bodyclose // returned to caller
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= http.StatusInternalServerError {
			serverResp = r
			return nil, &ServerError{StatusCode: r.StatusCode}
		}
		return r, nil
	})
	if serverResp != nil {
		return serverResp, nil
	}
	return resp, err
}

// ServerError is recorded against the breaker for a 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the state of the client's breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.CircuitBreakerState()
}
