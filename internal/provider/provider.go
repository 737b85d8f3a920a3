package provider

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxAttempts      = 3
	defaultBaseDelay = time.Second
	requestTimeout   = 15 * time.Second
	userAgent        = "bmo-slackbot"
)

// Provider fetches URLs with bounded retries. Attempt n waits
// round(n^1.5) * baseDelay before retrying, so transient upstream hiccups
// get progressively more room to clear.
type Provider struct {
	httpClient *http.Client
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewProvider(logger *zap.Logger) *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseDelay:  defaultBaseDelay,
		logger:     logger,
	}
}

// Fetch returns the response body for url, retrying failed attempts.
func (p *Provider) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := p.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := time.Duration(math.Round(math.Pow(float64(attempt), 1.5))) * p.baseDelay
		p.logger.Warn("Request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	p.logger.Error("Request failed after retries", zap.String("url", url), zap.Error(lastErr))
	apiErr := errors.NewAPIError(fmt.Sprintf("%s can't be reached", url), 0, map[string]any{"url": url})
	apiErr.Cause = lastErr
	return nil, apiErr
}

func (p *Provider) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SetBaseDelay overrides the retry delay. Tests shrink it to keep retry
// paths fast.
func (p *Provider) SetBaseDelay(d time.Duration) {
	p.baseDelay = d
}
