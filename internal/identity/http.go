package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/muniops/internal/model"
	"github.com/sells-group/muniops/internal/resilience"
)

// HTTPOptions configures the HTTP identity lookup.
type HTTPOptions struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RatePerSec float64
	HTTPClient *http.Client
}

// HTTPLookup asks the identity service which organization the bearer token
// belongs to. Calls are rate limited and guarded by a circuit breaker so a
// failing identity service is not hammered by refreshes.
type HTTPLookup struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewHTTPLookup creates an HTTPLookup.
func NewHTTPLookup(opts HTTPOptions) *HTTPLookup {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &HTTPLookup{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
			ShouldTrip:       resilience.IsTransient,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("identity: circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

type organizationResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// Lookup fetches GET {base}/v1/organizations/current.
func (l *HTTPLookup) Lookup(ctx context.Context) (*model.Organization, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "identity: rate limit wait")
	}
	return resilience.ExecuteVal(ctx, l.breaker, l.fetch)
}

func (l *HTTPLookup) fetch(ctx context.Context) (*model.Organization, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v1/organizations/current", nil)
	if err != nil {
		return nil, eris.Wrap(err, "identity: build request")
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "identity: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := eris.Errorf("identity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var body organizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "identity: decode response")
	}
	if body.ID == "" {
		return nil, eris.New("identity: response missing organization id")
	}
	return &model.Organization{ID: body.ID, Name: body.Name, Plan: model.ParseTier(body.Plan)}, nil
}
