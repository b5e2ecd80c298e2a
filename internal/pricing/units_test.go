package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("12.5")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	want, _ := decimal.NewFromString("12500000000000000000")
	if got.Cmp(want.BigInt()) != 0 {
		t.Errorf("ParseAmount = %s, want %s", got, want)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000000000000000001"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Errorf("ParseAmount(%q) expected error", bad)
		}
	}
}

func TestFromWeiRoundTrip(t *testing.T) {
	v := tokens(42)
	if got := ToWei(FromWei(v)); got.Cmp(v) != 0 {
		t.Errorf("round trip = %s, want %s", got, v)
	}
	if got := FormatAmount(tokens(7)); got != "7.00" {
		t.Errorf("FormatAmount = %q, want 7.00", got)
	}
}

func TestBpToProbability(t *testing.T) {
	if got := BpToProbability(6000).String(); got != "0.6" {
		t.Errorf("BpToProbability(6000) = %s, want 0.6", got)
	}
}
