package catalog

import (
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
)

// ClientConfig holds configuration for the catalog client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	CB      CBConfig
}

// CBConfig holds circuit breaker configuration.
type CBConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// newRestyClient creates the HTTP client. Calls are never retried: a failed
// catalog call fails the request.
func newRestyClient(cfg ClientConfig) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// newCircuitBreaker trips on transport failures and 5xx answers. Client-side
// errors such as an exhausted quota do not count against the upstream.
func newCircuitBreaker(name string, cfg CBConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[*resty.Response] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}

			var upErr *domain.UpstreamError
			if errors.As(err, &upErr) {
				return upErr.Code >= 400 && upErr.Code < 500
			}

			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[*resty.Response](settings)
}
