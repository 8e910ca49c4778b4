// Package postgrest implements location.Store over a PostgREST RPC endpoint.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/carefinder/carefinder/internal/location"
	"github.com/carefinder/carefinder/internal/resilience"
)

const (
	// StoreName identifies this backend in logs, metrics and the registry.
	StoreName = "postgrest"

	// DefaultFunction is the RPC function called for radius searches.
	DefaultFunction = "nearby_locations"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// ErrNullPayload is returned when the RPC answers 2xx with a JSON null.
var ErrNullPayload = errors.New("postgrest returned a null payload")

// ClientConfig holds configuration for the PostgREST client.
type ClientConfig struct {
	// BaseURL is the PostgREST root, e.g. https://db.example.org/rest/v1.
	BaseURL string

	// APIKey is sent as the apikey header and, without a JWT secret, as the
	// bearer token.
	APIKey string

	// JWTSecret enables minted role tokens when set.
	JWTSecret string

	// Role is the database role claimed in minted tokens (default: web_anon).
	Role string

	// Function is the RPC name (default: nearby_locations).
	Function string

	// HTTPClient overrides the resilient client.
	HTTPClient HTTPDoer

	// Timeout for individual RPC calls (default: 10s).
	Timeout time.Duration

	// Registry, if set, tracks the client's breaker health.
	Registry *resilience.Registry
}

// ConfigFromEnv creates a ClientConfig from POSTGREST_* environment variables.
func ConfigFromEnv() ClientConfig {
	timeout, err := time.ParseDuration(os.Getenv("POSTGREST_TIMEOUT"))
	if err != nil {
		timeout = 10 * time.Second
	}
	return ClientConfig{
		BaseURL:   os.Getenv("POSTGREST_URL"),
		APIKey:    os.Getenv("POSTGREST_API_KEY"),
		JWTSecret: os.Getenv("POSTGREST_JWT_SECRET"),
		Role:      getEnvOrDefault("POSTGREST_ROLE", DefaultRole),
		Function:  getEnvOrDefault("POSTGREST_FUNCTION", DefaultFunction),
		Timeout:   timeout,
	}
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the nearby RPC through PostgREST.
type Client struct {
	endpoint   string
	apiKey     string
	tokens     *TokenSource
	httpClient HTTPDoer
}

// NewClient creates a new PostgREST client. Calls are made once; failures
// are left to the caller's fallback.
func NewClient(cfg ClientConfig) *Client {
	fn := cfg.Function
	if fn == "" {
		fn = DefaultFunction
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:     StoreName,
			Timeout:  timeout,
			Registry: cfg.Registry,
		})
	}

	var tokens *TokenSource
	if cfg.JWTSecret != "" {
		tokens = NewTokenSource(cfg.JWTSecret, cfg.Role)
	}

	return &Client{
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/rpc/" + fn,
		apiKey:     cfg.APIKey,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// nearbyParams is the RPC body. Absent filters are sent as JSON null.
type nearbyParams struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RadiusKm   float64 `json:"radius_km"`
	Category   *string `json:"category"`
	OnlyOpen   bool    `json:"only_open"`
	Accessible *bool   `json:"accessible"`
	Pets       *bool   `json:"pets"`
	Gender     *string `json:"gender"`
}

func paramsFromQuery(q location.Query) nearbyParams {
	p := nearbyParams{
		Lat:        q.Latitude,
		Lng:        q.Longitude,
		RadiusKm:   q.RadiusKm,
		OnlyOpen:   q.OnlyOpen,
		Accessible: q.Accessible,
		Pets:       q.Pets,
	}
	if q.Category != nil {
		c := string(*q.Category)
		p.Category = &c
	}
	if q.Gender != nil {
		g := string(*q.Gender)
		p.Gender = &g
	}
	return p
}

// Name implements location.Store.
func (c *Client) Name() string {
	return StoreName
}

// NearbyLocations implements location.Store.
func (c *Client) NearbyLocations(ctx context.Context, q location.Query) ([]location.Row, error) {
	body, err := json.Marshal(paramsFromQuery(q))
	if err != nil {
		return nil, fmt.Errorf("encode rpc params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call nearby rpc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status %d from nearby rpc: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode nearby response: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrNullPayload
	}

	var rows []location.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode nearby rows: %w", err)
	}
	if rows == nil {
		rows = []location.Row{}
	}
	return rows, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	switch {
	case c.tokens != nil:
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
