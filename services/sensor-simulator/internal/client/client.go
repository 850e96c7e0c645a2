// Package client submits synthetic readings to the environment-service.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
	"github.com/mohamedlandolsi/greenhouse-management-system/services/sensor-simulator/internal/generator"
)

const (
	parametersPath   = "/api/v1/parameters"
	measurementsPath = "/api/v1/measurements"
)

// Parameter is the environment-service view of a monitored parameter.
type Parameter struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	MinThreshold float64 `json:"min_threshold"`
	MaxThreshold float64 `json:"max_threshold"`
	Unit         string  `json:"unit"`
}

// Band converts the parameter to a generator band.
func (p Parameter) Band() generator.Band {
	return generator.Band{
		ParameterID: p.ID,
		Kind:        p.Kind,
		Min:         p.MinThreshold,
		Max:         p.MaxThreshold,
		Unit:        p.Unit,
	}
}

type measurementRequest struct {
	ParameterID string    `json:"parameter_id"`
	Value       float64   `json:"value"`
	MeasuredAt  time.Time `json:"measured_at"`
}

// MeasurementResult is the part of the stored measurement the simulator reports on.
type MeasurementResult struct {
	ID           string `json:"id"`
	Alert        bool   `json:"alert"`
	Severity     string `json:"severity,omitempty"`
	AlertEventID string `json:"alert_event_id,omitempty"`
}

// Client calls the environment-service.
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}
}

// ListParameters returns every parameter configured in the environment-service.
func (c *Client) ListParameters(ctx context.Context) ([]Parameter, error) {
	var params []Parameter
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&params).
		Get(parametersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	return params, nil
}

// PostMeasurement submits a reading. Client errors wrap apperrors.ErrInvalidArgument
// so callers do not retry them.
func (c *Client) PostMeasurement(ctx context.Context, r *generator.Reading) (*MeasurementResult, error) {
	var result MeasurementResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(measurementRequest{
			ParameterID: r.ParameterID,
			Value:       r.Value,
			MeasuredAt:  r.MeasuredAt,
		}).
		SetResult(&result).
		Post(measurementsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to post measurement: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("failed to post measurement for %s: %w", r.ParameterID, err)
	}
	return &result, nil
}

func statusError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	code := resp.StatusCode()
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrInvalidArgument, code, resp.String())
	}
	return fmt.Errorf("environment-service returned status %d", code)
}
