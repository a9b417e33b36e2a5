package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/quantlab/topescape/internal/rolling"
)

// MarginRow is one day of market-wide margin trading balances, in yuan.
type MarginRow struct {
	Date      time.Time
	Financing float64
	Lending   float64
}

var marginDateRe = regexp.MustCompile(`^\d{4}[-./]\d{2}[-./]\d{2}$`)

// FetchMarginDaily fetches the market-wide margin balance history. The
// endpoint paginates; fetching stops at the first page whose oldest row
// is before from, or when a page yields no rows.
func (p *Provider) FetchMarginDaily(ctx context.Context, from, to time.Time) ([]MarginRow, error) {
	var all []MarginRow

	for page := 1; page <= 200; page++ {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		url := fmt.Sprintf("%s?page=%d", p.cfg.MarginURL, page)

		resp, err := p.client.Get(ctx, url, defaultHeaders)
		if err != nil {
			return all, fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return all, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return all, fmt.Errorf("read response body failed: %w", err)
		}

		rows, err := ParseMarginHTML(strings.NewReader(string(body)))
		if err != nil {
			return all, fmt.Errorf("parse margin page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}

		oldest := rows[len(rows)-1].Date
		for _, row := range rows {
			if row.Date.Before(from) || row.Date.After(to) {
				continue
			}
			all = append(all, row)
		}
		if oldest.Before(from) {
			break
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"count": len(all),
	}).Debug("Fetched margin balances")
	return all, nil
}

// ParseMarginHTML extracts (date, financing, lending) rows from the
// margin balance table of one page. Rows whose first cell is not a date
// are skipped; unparseable balances stay missing.
func ParseMarginHTML(r io.Reader) ([]MarginRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var rows []MarginRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !marginDateRe.MatchString(dateText) {
			return
		}
		dateText = strings.NewReplacer(".", "-", "/", "-").Replace(dateText)
		date, err := time.Parse("2006-01-02", dateText)
		if err != nil {
			return
		}

		rows = append(rows, MarginRow{
			Date:      date,
			Financing: marginNumber(cells.Eq(1).Text()),
			Lending:   marginNumber(cells.Eq(2).Text()),
		})
	})

	return rows, nil
}

// marginNumber parses a balance cell, handling thousands separators and
// the 亿 (hundred-million yuan) unit suffix.
func marginNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	scale := 1.0
	if strings.HasSuffix(s, "亿") {
		s = strings.TrimSuffix(s, "亿")
		scale = 1e8
	}
	if s == "" || s == "-" {
		return rolling.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return rolling.Missing()
	}
	return v * scale
}
