package llm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/health-consult-server/internal/domain"
)

// ResilientService wraps a provider with a circuit breaker and client-side
// rate limiting. An open breaker fails fast; to the analysis core that is
// just another delegated failure, so the local fallback kicks in without
// waiting out a provider outage.
type ResilientService struct {
	inner   Service
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewResilientService wraps the given provider with breaker and limiter.
func NewResilientService(inner Service, cfg domain.LLMConfig, logger *logrus.Logger) *ResilientService {
	breakerCfg := cfg.Breaker
	if breakerCfg.ConsecutiveFailures == 0 {
		breakerCfg.ConsecutiveFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("llm-%s", inner.ProviderName()),
		MaxRequests: breakerCfg.MaxRequests,
		Interval:    breakerCfg.Interval,
		Timeout:     breakerCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerCfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("LLM circuit breaker state changed")
		},
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 5
	}

	return &ResilientService{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		logger:  logger,
	}
}

// ProviderName returns the wrapped provider's identifier.
func (s *ResilientService) ProviderName() string {
	return s.inner.ProviderName()
}

// GenerateChat generates a chat response through the breaker.
func (s *ResilientService) GenerateChat(ctx context.Context, messages []Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiting chat call: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.GenerateChat(ctx, messages)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// AnalyzeText runs a structured analysis through the breaker.
func (s *ResilientService) AnalyzeText(ctx context.Context, text, task string) (*AnalysisPayload, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiting analysis call: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.AnalyzeText(ctx, text, task)
	})
	if err != nil {
		return nil, err
	}
	return result.(*AnalysisPayload), nil
}

// BreakerState exposes the current breaker state for health reporting.
func (s *ResilientService) BreakerState() gobreaker.State {
	return s.breaker.State()
}
