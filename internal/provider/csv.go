package provider

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// WriteIndexCSV writes fetched bars into the column layout the dataset
// loaders read. Missing cells are written empty.
func WriteIndexCSV(path string, bars []Bar) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额", "振幅", "换手率"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, b := range bars {
		row := []string{
			b.Date.Format("2006-01-02"),
			cellValue(b.Open),
			cellValue(b.Close),
			cellValue(b.High),
			cellValue(b.Low),
			cellValue(b.Volume),
			cellValue(b.Amount),
			cellValue(b.Amplitude),
			cellValue(b.TurnoverRate),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteMarginCSV writes fetched margin balances into the column layout
// the margin loader reads.
func WriteMarginCSV(path string, rows []MarginRow) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"日期", "融资余额", "融券余额"}); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.Date.Format("2006-01-02"),
			cellValue(r.Financing),
			cellValue(r.Lending),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return os.Create(path)
}

func cellValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
