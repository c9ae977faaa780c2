package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.001", "", false}, // rounds to zero
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCentsConversion(t *testing.T) {
	d := decimal.RequireFromString("12.34")
	if c := ToCents(d); c != 1234 {
		t.Fatalf("ToCents = %d, want 1234", c)
	}
	if got := FromCents(1234); !got.Equal(d) {
		t.Fatalf("FromCents = %s, want %s", got, d)
	}
	if got := FormatAmount(FromCents(5)); got != "0.05" {
		t.Fatalf("FormatAmount = %s, want 0.05", got)
	}
}
