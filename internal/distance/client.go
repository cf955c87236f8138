package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Common errors
var (
	ErrRouteNotFound = errors.New("route not found")
	ErrEmptyLocation = errors.New("origin and destination are required")
)

// Estimator estimates driving miles between two places
type Estimator interface {
	EstimateMiles(ctx context.Context, origin, destination string) (float64, error)
}

type distanceResponse struct {
	Miles float64 `json:"miles"`
}

// Client talks to an external routing service
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a routing client. requestsPerSecond <= 0 disables throttling.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(math.Max(1, math.Ceil(requestsPerSecond)))
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// EstimateMiles returns the driving distance in miles
func (c *Client) EstimateMiles(ctx context.Context, origin, destination string) (float64, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return 0, ErrEmptyLocation
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("distance rate limiter: %w", err)
	}

	params := url.Values{}
	params.Add("origin", origin)
	params.Add("destination", destination)
	params.Add("unit", "mi")

	endpoint := fmt.Sprintf("%s/distance?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("distance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return 0, ErrRouteNotFound
		}
		return 0, fmt.Errorf("routing service returned status %d", resp.StatusCode)
	}

	var body distanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode distance response: %w", err)
	}

	if body.Miles < 0 || math.IsNaN(body.Miles) || math.IsInf(body.Miles, 0) {
		return 0, fmt.Errorf("routing service returned invalid distance %v", body.Miles)
	}

	return body.Miles, nil
}
