package money

import (
	"math"
	"testing"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		want    int64
		wantErr bool
	}{
		{name: "whole units", amount: 100.0, want: 10000},
		{name: "two decimals", amount: 12.34, want: 1234},
		{name: "one decimal", amount: 0.1, want: 10},
		{name: "zero", amount: 0, want: 0},
		{name: "half rounds up in magnitude", amount: 10.005, want: 1001},
		{name: "below half rounds down", amount: 10.004, want: 1000},
		{name: "float artifact sum", amount: 0.1 + 0.2, want: 30},
		{name: "negative rejected", amount: -1.50, wantErr: true},
		{name: "NaN rejected", amount: math.NaN(), wantErr: true},
		{name: "infinity rejected", amount: math.Inf(1), wantErr: true},
		{name: "too large rejected", amount: 1e17, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinorUnits(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToMinorUnits(%v) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToMinorUnits(%v) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	if got := FromMinorUnits(1234); got != 12.34 {
		t.Errorf("FromMinorUnits(1234) = %v, want 12.34", got)
	}
	if got := FromMinorUnits(0); got != 0 {
		t.Errorf("FromMinorUnits(0) = %v, want 0", got)
	}
}

// Round-trip law: converting minor units to decimal and back must be
// lossless for every representable amount.
func TestRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 99, 100, 101, 3333, 3334, 10000, 999999999, 123456789012345}
	for _, units := range cases {
		back, err := ToMinorUnits(FromMinorUnits(units))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", units, err)
		}
		if back != units {
			t.Errorf("round trip of %d = %d", units, back)
		}
	}
}
