package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// RawCSV is a decoded CSV file: a header row plus data rows, all as
// strings. Numeric and date coercion happens in the source loaders.
type RawCSV struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the index of the named header, or -1. Header cells
// are compared after trimming whitespace.
func (r *RawCSV) ColumnIndex(name string) int {
	for i, h := range r.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// ReadCSVFile reads a CSV file that may be UTF-8, UTF-8 with BOM, or GBK
// encoded. Provider exports in this domain come in all three. An empty
// file is an error.
func ReadCSVFile(path string) (*RawCSV, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	data = decodeToUTF8(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // provider files have ragged rows on occasion
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file %s has no data rows", path)
	}

	return &RawCSV{Header: records[0], Rows: records[1:]}, nil
}

// decodeToUTF8 strips a UTF-8 BOM or transcodes from GBK when the bytes
// are not valid UTF-8.
func decodeToUTF8(data []byte) []byte {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return data[3:]
	}
	if utf8.Valid(data) {
		return data
	}

	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		// Fall through with the raw bytes; bad cells coerce to missing.
		return data
	}
	return decoded
}
