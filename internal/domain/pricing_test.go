package domain

import "testing"

func TestBasePriceLocal(t *testing.T) {
	cases := []struct {
		name string
		yen  int64
		rate float64
		want int64
	}{
		{name: "typical rate", yen: 500, rate: 108.5, want: 54250},
		{name: "half rounds up", yen: 1, rate: 108.5, want: 109},
		{name: "fraction below half rounds down", yen: 3, rate: 108.4, want: 325},
		{name: "zero base", yen: 0, rate: 108.5, want: 0},
		{name: "integer rate", yen: 1200, rate: 100, want: 120000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BasePriceLocal(tc.yen, tc.rate); got != tc.want {
				t.Fatalf("BasePriceLocal(%d, %v) = %d, want %d", tc.yen, tc.rate, got, tc.want)
			}
		})
	}
}

func TestSellingPriceWithMargin(t *testing.T) {
	cases := []struct {
		name   string
		yen    int64
		rate   float64
		margin float64
		want   int64
	}{
		{name: "twenty percent margin", yen: 1000, rate: 100, margin: 20, want: 120000},
		{name: "zero margin equals base", yen: 1000, rate: 100, margin: 0, want: 100000},
		{name: "fractional result rounds up", yen: 333, rate: 100.1, margin: 10, want: 36667},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SellingPriceWithMargin(tc.yen, tc.rate, tc.margin); got != tc.want {
				t.Fatalf("SellingPriceWithMargin(%d, %v, %v) = %d, want %d", tc.yen, tc.rate, tc.margin, got, tc.want)
			}
		})
	}
}
