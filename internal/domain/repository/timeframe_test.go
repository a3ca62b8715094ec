package repository

import "testing"

func TestNormalizeTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"":     TF15m,
		"1h":   TF1h,
		"30m":  Timeframe("30m"),
		"oops": TF15m,
	}
	for in, want := range cases {
		if got := NormalizeTimeframe(in); got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
	}
	if TF4h.Minutes() != 240 {
		t.Fatalf("unexpected minutes for 4h")
	}
}
