// Package provider fetches index and margin-balance history from the
// public market data endpoints and writes it into the CSV layout the
// dataset loaders consume.
package provider

import (
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/httputil"
	"github.com/quantlab/topescape/pkg/logger"
)

// Well-known secids of the indices the profile tracks.
const (
	SecIDHS300    = "1.000300"
	SecIDCSIAll   = "2.000985"
	SecIDShanghai = "1.000001"
)

var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Referer":    "https://quote.eastmoney.com/",
}

// Provider is the market data client. All fetches are rate limited and
// retried through the shared HTTP client.
type Provider struct {
	client *httputil.Client
	cfg    config.ProviderConfig
	logger *logger.Logger
}

// New creates a provider from config.
func New(cfg config.ProviderConfig, log *logger.Logger) *Provider {
	client := httputil.New(log, cfg.Timeout).
		WithRateLimit(cfg.RequestsPerSec)

	return &Provider{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}
