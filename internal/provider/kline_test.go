package provider

import (
	"testing"

	"github.com/quantlab/topescape/internal/rolling"
)

const sampleKlineBody = `{
	"rc": 0,
	"data": {
		"code": "000300",
		"name": "沪深300",
		"klines": [
			"2021-02-18,5800.0,5778.8,5930.9,5760.4,23800000,311000000000,2.94,-0.7,-42.2,0.83",
			"2021-02-19,5770.0,5779.0,5810.0,5700.0,21000000,290000000000,1.90,0.0,0.2",
			"garbage-date,1,2,3,4,5,6"
		]
	}
}`

func TestParseKlines(t *testing.T) {
	bars, err := ParseKlines([]byte(sampleKlineBody))
	if err != nil {
		t.Fatalf("ParseKlines failed: %v", err)
	}

	// The unparseable date is dropped, not zeroed.
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}

	b := bars[0]
	if b.Date.Format("2006-01-02") != "2021-02-18" {
		t.Errorf("unexpected date %v", b.Date)
	}
	if b.Close != 5778.8 {
		t.Errorf("expected close 5778.8, got %g", b.Close)
	}
	if b.Amount != 311000000000 {
		t.Errorf("expected amount 3.11e11, got %g", b.Amount)
	}
	if b.Amplitude != 2.94 {
		t.Errorf("expected amplitude 2.94, got %g", b.Amplitude)
	}
	if b.TurnoverRate != 0.83 {
		t.Errorf("expected turnover rate 0.83, got %g", b.TurnoverRate)
	}

	// Second kline has no turnover field: missing, never zero.
	if !rolling.IsMissing(bars[1].TurnoverRate) {
		t.Errorf("expected missing turnover rate, got %g", bars[1].TurnoverRate)
	}
}

func TestParseKlinesNoData(t *testing.T) {
	if _, err := ParseKlines([]byte(`{"rc":0,"data":null}`)); err == nil {
		t.Error("expected error for empty data section")
	}
	if _, err := ParseKlines([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed body")
	}
}
