package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// Bar is one daily candle of an index, as returned by the chart API.
// Fields that the endpoint omits for an index stay missing.
type Bar struct {
	Date         time.Time
	Open         float64
	Close        float64
	High         float64
	Low          float64
	Volume       float64
	Amount       float64
	Amplitude    float64
	PctChange    float64
	TurnoverRate float64
}

// klineResponse is the chart API envelope. Each kline is a single
// comma-joined string per day.
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchIndexDaily fetches the full daily history of an index.
// secID is the provider's market-prefixed code, e.g. "1.000300".
func (p *Provider) FetchIndexDaily(ctx context.Context, secID string, from, to time.Time) ([]Bar, error) {
	url := fmt.Sprintf(
		"%s/api/qt/stock/kline/get?secid=%s&klt=101&fqt=1&beg=%s&end=%s"+
			"&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61",
		p.cfg.BaseURL, secID,
		strings.ReplaceAll(from.Format("2006-01-02"), "-", ""),
		strings.ReplaceAll(to.Format("2006-01-02"), "-", ""),
	)

	resp, err := p.client.Get(ctx, url, defaultHeaders)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	bars, err := ParseKlines(body)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"secid": secID,
		"count": len(bars),
	}).Debug("Fetched index klines")
	return bars, nil
}

// ParseKlines parses the chart API JSON body into bars. Days whose date
// cannot be parsed are dropped; unparseable numeric cells stay missing.
func ParseKlines(body []byte) ([]Bar, error) {
	var env klineResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode kline envelope: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("kline response has no data section")
	}

	bars := make([]Bar, 0, len(env.Data.Klines))
	for _, line := range env.Data.Klines {
		// date,open,close,high,low,volume,amount,amplitude,pct,chg,turnover
		parts := strings.Split(line, ",")
		if len(parts) < 7 {
			continue
		}
		date, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}

		b := Bar{
			Date:         date,
			Open:         klineField(parts, 1),
			Close:        klineField(parts, 2),
			High:         klineField(parts, 3),
			Low:          klineField(parts, 4),
			Volume:       klineField(parts, 5),
			Amount:       klineField(parts, 6),
			Amplitude:    klineField(parts, 7),
			PctChange:    klineField(parts, 8),
			TurnoverRate: klineField(parts, 10),
		}
		bars = append(bars, b)
	}

	return bars, nil
}

// klineField parses one cell of a kline, missing when absent or blank.
func klineField(parts []string, idx int) float64 {
	if idx >= len(parts) {
		return rolling.Missing()
	}
	s := strings.TrimSpace(parts[idx])
	if s == "" || s == "-" {
		return rolling.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return rolling.Missing()
	}
	return v
}
