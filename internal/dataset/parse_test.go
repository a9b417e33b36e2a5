package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/topescape/internal/rolling"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2021, 2, 18, 0, 0, 0, 0, time.UTC)

	cases := []string{
		"2021-02-18",
		"20210218",
		"2021/02/18",
		"2021-02-18 15:00:00",
		"  2021-02-18 ",
	}
	for _, s := range cases {
		got, err := ParseDate(s)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}

	if _, err := ParseDate("18/02/2021"); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1234.5", 1234.5},
		{"1,234.5", 1234.5},
		{"+3.2", 3.2},
		{"2.5%", 2.5},
		{"-0.7", -0.7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseNumber(c.in), "ParseNumber(%q)", c.in)
	}

	for _, s := range []string{"", "-", "nan", "NaN", "n/a"} {
		if !rolling.IsMissing(ParseNumber(s)) {
			t.Errorf("ParseNumber(%q): expected missing", s)
		}
	}

	// Unparseable never coerces to zero.
	if v := ParseNumber("abc"); !rolling.IsMissing(v) {
		t.Errorf("expected missing for garbage, got %g", v)
	}
}
