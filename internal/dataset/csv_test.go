package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadCSVFileUTF8(t *testing.T) {
	path := writeTemp(t, "utf8.csv", []byte("日期,收盘\n2021-02-18,5800.0\n"))

	raw, err := ReadCSVFile(path)
	require.NoError(t, err)

	if raw.ColumnIndex("日期") != 0 || raw.ColumnIndex("收盘") != 1 {
		t.Errorf("unexpected header mapping: %v", raw.Header)
	}
	if len(raw.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(raw.Rows))
	}
}

func TestReadCSVFileBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("日期,收盘\n2021-02-18,5800.0\n")...)
	path := writeTemp(t, "bom.csv", data)

	raw, err := ReadCSVFile(path)
	require.NoError(t, err)
	if raw.ColumnIndex("日期") != 0 {
		t.Errorf("BOM not stripped, header: %q", raw.Header[0])
	}
}

func TestReadCSVFileGBK(t *testing.T) {
	utf8Data := []byte("日期,收盘\n2021-02-18,5800.0\n")
	gbkData, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), utf8Data)
	require.NoError(t, err)
	path := writeTemp(t, "gbk.csv", gbkData)

	raw, err := ReadCSVFile(path)
	require.NoError(t, err)
	if raw.ColumnIndex("收盘") != 1 {
		t.Errorf("GBK header not decoded: %v", raw.Header)
	}
}

func TestReadCSVFileEmpty(t *testing.T) {
	path := writeTemp(t, "empty.csv", nil)
	if _, err := ReadCSVFile(path); err == nil {
		t.Error("expected error for empty file")
	}

	headerOnly := writeTemp(t, "header.csv", []byte("日期,收盘\n"))
	if _, err := ReadCSVFile(headerOnly); err == nil {
		t.Error("expected error for file without data rows")
	}
}
