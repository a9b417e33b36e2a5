package provider

import (
	"strings"
	"testing"

	"github.com/quantlab/topescape/internal/rolling"
)

const sampleMarginHTML = `
<html><body>
<table>
  <tr><th>日期</th><th>融资余额</th><th>融券余额</th></tr>
  <tr><td>2021-02-19</td><td>1,600,000,000,000</td><td>120,000,000,000</td></tr>
  <tr><td>2021-02-18</td><td>15800亿</td><td>-</td></tr>
  <tr><td>合计</td><td>x</td><td>y</td></tr>
</table>
</body></html>`

func TestParseMarginHTML(t *testing.T) {
	rows, err := ParseMarginHTML(strings.NewReader(sampleMarginHTML))
	if err != nil {
		t.Fatalf("ParseMarginHTML failed: %v", err)
	}

	// The summary row without a date is skipped.
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].Date.Format("2006-01-02") != "2021-02-19" {
		t.Errorf("unexpected date %v", rows[0].Date)
	}
	if rows[0].Financing != 1.6e12 {
		t.Errorf("expected 1.6e12, got %g", rows[0].Financing)
	}

	// 亿 unit suffix scales by 1e8.
	if rows[1].Financing != 15800e8 {
		t.Errorf("expected 1.58e12, got %g", rows[1].Financing)
	}
	// A dash balance is missing, never zero.
	if !rolling.IsMissing(rows[1].Lending) {
		t.Errorf("expected missing lending, got %g", rows[1].Lending)
	}
}

func TestParseMarginHTMLNoTable(t *testing.T) {
	rows, err := ParseMarginHTML(strings.NewReader("<html><body><p>nothing</p></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}
