package dataset

import (
	"math"
	"time"

	"github.com/quantlab/topescape/internal/rolling"
)

// Provider CSV headers. The upstream exports use Chinese column names;
// they are mapped to canonical snake_case columns here and nowhere else.
const (
	headerDate         = "日期"
	headerClose        = "收盘"
	headerTurnoverAmt  = "成交额"
	headerAmplitude    = "振幅"
	headerFinancingBal = "融资余额"
	headerLendingBal   = "融券余额"
	headerPETTM        = "滚动市盈率"
)

// turnoverRateHeaders are the accepted spellings of the turnover-rate
// column.
var turnoverRateHeaders = []string{"换手率", "换手"}

// searchHeaders are the accepted spellings of the search-volume column.
var searchHeaders = []string{"搜索量", "搜索指数", "Search", "search", "index"}

// IndexOptions selects which derived columns an index loader emits.
type IndexOptions struct {
	TurnoverAmt  bool // keep the raw traded value column
	TurnoverLog  bool // log(1+traded value)
	TurnoverRate bool // turnover rate, normalized to a fraction
}

// LoadIndex loads one equity index history (close, amplitude, traded
// value, optional turnover rate) and derives the return and log-value
// columns under the given prefix. The date and close columns are
// required; their absence is a SchemaError.
func LoadIndex(path, source, prefix string, opts IndexOptions) (*Table, error) {
	raw, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}

	dateIdx := raw.ColumnIndex(headerDate)
	if dateIdx < 0 {
		return nil, &SchemaError{Source: source, Column: headerDate}
	}
	closeIdx := raw.ColumnIndex(headerClose)
	if closeIdx < 0 {
		return nil, &SchemaError{Source: source, Column: headerClose}
	}
	amtIdx := raw.ColumnIndex(headerTurnoverAmt)
	amplIdx := raw.ColumnIndex(headerAmplitude)

	rateIdx := -1
	for _, h := range turnoverRateHeaders {
		if i := raw.ColumnIndex(h); i >= 0 {
			rateIdx = i
			break
		}
	}

	rows := sortedRows(raw, dateIdx)

	dates := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	amts := make([]float64, len(rows))
	ampls := make([]float64, len(rows))
	rates := make([]float64, len(rows))
	for i, row := range rows {
		dates[i] = row.date
		closes[i] = cell(row.cells, closeIdx)
		amts[i] = cell(row.cells, amtIdx)
		ampls[i] = cell(row.cells, amplIdx)
		rates[i] = cell(row.cells, rateIdx)
	}

	t := New(dates)
	if err := t.Set(prefix+"_close", closes); err != nil {
		return nil, err
	}
	if err := t.Set(prefix+"_ret", pctChange(closes)); err != nil {
		return nil, err
	}
	if amplIdx >= 0 {
		if err := t.Set(prefix+"_amplitude", ampls); err != nil {
			return nil, err
		}
	}
	if opts.TurnoverAmt && amtIdx >= 0 {
		if err := t.Set(prefix+"_turnover_amt", amts); err != nil {
			return nil, err
		}
	}
	if opts.TurnoverLog {
		if err := t.Set(prefix+"_turnover_log", log1p(amts)); err != nil {
			return nil, err
		}
	}
	if opts.TurnoverRate {
		if err := t.Set(prefix+"_turnover_rate", normalizeRate(rates)); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// LoadMargin loads the margin-debt history: total balance (financing +
// securities lending) plus its log transform.
func LoadMargin(path string) (*Table, error) {
	raw, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}

	dateIdx := raw.ColumnIndex(headerDate)
	if dateIdx < 0 {
		return nil, &SchemaError{Source: "margin", Column: headerDate}
	}
	finIdx := raw.ColumnIndex(headerFinancingBal)
	if finIdx < 0 {
		return nil, &SchemaError{Source: "margin", Column: headerFinancingBal}
	}
	lendIdx := raw.ColumnIndex(headerLendingBal)

	rows := sortedRows(raw, dateIdx)

	dates := make([]time.Time, len(rows))
	total := make([]float64, len(rows))
	for i, row := range rows {
		dates[i] = row.date
		fin := cell(row.cells, finIdx)
		lend := cell(row.cells, lendIdx)
		if rolling.IsMissing(fin) || rolling.IsMissing(lend) {
			total[i] = rolling.Missing()
			continue
		}
		total[i] = fin + lend
	}

	t := New(dates)
	if err := t.Set("margin_total", total); err != nil {
		return nil, err
	}
	if err := t.Set("margin_total_log", log1p(total)); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadSearch loads the search-interest history. The volume column header
// varies by export tool, so several spellings are accepted and the
// second column is the fallback.
func LoadSearch(path string) (*Table, error) {
	raw, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}

	dateIdx := raw.ColumnIndex(headerDate)
	if dateIdx < 0 {
		return nil, &SchemaError{Source: "search", Column: headerDate}
	}

	volIdx := -1
	for _, h := range searchHeaders {
		if i := raw.ColumnIndex(h); i >= 0 {
			volIdx = i
			break
		}
	}
	if volIdx < 0 {
		if len(raw.Header) < 2 {
			return nil, &SchemaError{Source: "search", Column: searchHeaders[0]}
		}
		volIdx = 1
	}

	rows := sortedRows(raw, dateIdx)

	dates := make([]time.Time, len(rows))
	vol := make([]float64, len(rows))
	for i, row := range rows {
		dates[i] = row.date
		vol[i] = cell(row.cells, volIdx)
	}

	t := New(dates)
	if err := t.Set("search_volume", vol); err != nil {
		return nil, err
	}
	if err := t.Set("search_volume_log", log1p(vol)); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadPE loads the trailing price/earnings history.
func LoadPE(path string) (*Table, error) {
	raw, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}

	dateIdx := raw.ColumnIndex(headerDate)
	if dateIdx < 0 {
		return nil, &SchemaError{Source: "pe", Column: headerDate}
	}
	peIdx := raw.ColumnIndex(headerPETTM)
	if peIdx < 0 {
		return nil, &SchemaError{Source: "pe", Column: headerPETTM}
	}

	rows := sortedRows(raw, dateIdx)

	dates := make([]time.Time, len(rows))
	pe := make([]float64, len(rows))
	for i, row := range rows {
		dates[i] = row.date
		pe[i] = cell(row.cells, peIdx)
	}

	t := New(dates)
	if err := t.Set("pe_ttm", pe); err != nil {
		return nil, err
	}
	return t, nil
}

// pctChange computes the one-step fractional change of a series. The
// first value and any step touching a missing value are missing.
func pctChange(s []float64) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		if i == 0 || rolling.IsMissing(s[i]) || rolling.IsMissing(s[i-1]) || s[i-1] == 0 {
			out[i] = rolling.Missing()
			continue
		}
		out[i] = s[i]/s[i-1] - 1
	}
	return out
}

// log1p applies log(1+v) elementwise, skipping missing values.
func log1p(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if rolling.IsMissing(v) {
			out[i] = rolling.Missing()
			continue
		}
		out[i] = math.Log1p(v)
	}
	return out
}

// normalizeRate converts a turnover-rate column to a fraction. Provider
// files report either fractions or percent; a max above 10 means
// percent.
func normalizeRate(s []float64) []float64 {
	maxV := rolling.Missing()
	for _, v := range s {
		if rolling.IsMissing(v) {
			continue
		}
		if rolling.IsMissing(maxV) || v > maxV {
			maxV = v
		}
	}
	if rolling.IsMissing(maxV) || maxV <= 10 {
		return s
	}

	out := make([]float64, len(s))
	for i, v := range s {
		if rolling.IsMissing(v) {
			out[i] = v
			continue
		}
		out[i] = v / 100
	}
	return out
}
