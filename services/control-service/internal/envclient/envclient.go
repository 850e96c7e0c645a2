// Package envclient reads current parameter configuration from the environment-service,
// guarded by a circuit breaker.
package envclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mohamedlandolsi/greenhouse-management-system/services/control-service/internal/breaker"
)

// FallbackMessage accompanies the empty result returned while the environment-service is unavailable.
const FallbackMessage = "Environment service temporarily unavailable"

const parametersPath = "/api/v1/parameters"

// Parameter is the environment-service view of a monitored parameter.
type Parameter struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	MinThreshold float64   `json:"min_threshold"`
	MaxThreshold float64   `json:"max_threshold"`
	Unit         string    `json:"unit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Conditions is the diagnostic view returned to callers.
type Conditions struct {
	Parameters []Parameter `json:"parameters"`
	Message    string      `json:"message,omitempty"`
	Degraded   bool        `json:"degraded"`
}

// Fallback is the degraded result used when the upstream call fails or is short-circuited.
func Fallback() *Conditions {
	return &Conditions{Parameters: []Parameter{}, Message: FallbackMessage, Degraded: true}
}

// Client calls the environment-service.
type Client struct {
	http    *resty.Client
	breaker *breaker.Breaker
}

// New creates a client for baseURL. Retries are left to the breaker's caller.
func New(baseURL string, timeout time.Duration, b *breaker.Breaker) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, breaker: b}
}

// CurrentConditions returns the configured parameters. On failure, including an open
// circuit, it returns Fallback together with the error.
func (c *Client) CurrentConditions(ctx context.Context) (*Conditions, error) {
	var params []Parameter

	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&params).
			Get(parametersPath)
		if err != nil {
			return fmt.Errorf("failed to call environment-service: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("environment-service returned status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		slog.Warn("Environment conditions unavailable, serving fallback",
			"breaker_state", c.breaker.State().String(),
			"error", err,
		)
		return Fallback(), err
	}

	if params == nil {
		params = []Parameter{}
	}
	return &Conditions{Parameters: params}, nil
}
