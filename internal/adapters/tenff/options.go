package tenff

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/autorole/pkg/logger"
)

// Option applies a configuration option to the Provider.
type Option func(*Provider)

// WithBaseURL points the provider at another host, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(p *Provider) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithCompletionistAchievements sets the achievement ids a profile must hold
// to count as completionist.
func WithCompletionistAchievements(ids []int) Option {
	return func(p *Provider) {
		if len(ids) > 0 {
			p.completionist = append([]int(nil), ids...)
		}
	}
}

// WithClock sets the time source used for account age.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets a custom logger for the provider.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}
