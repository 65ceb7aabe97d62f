package fuzzy

import (
	"math"
	"testing"
)

func TestLevenshtein_Ratio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"equal", "factura", "factura", 1},
		{"one edit", "factura", "fuctura", 1 - 1.0/7},
		{"empty", "", "factura", 0},
		{"disjoint", "abc", "xyz", 0},
		{"unicode", "año", "ano", 1 - 1.0/3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Levenshtein{}.Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestExact_Ratio(t *testing.T) {
	if got := (Exact{}).Ratio("a", "a"); got != 1 {
		t.Errorf("Ratio equal = %v", got)
	}
	if got := (Exact{}).Ratio("a", "b"); got != 0 {
		t.Errorf("Ratio different = %v", got)
	}
	if got := (Exact{}).Ratio("", ""); got != 0 {
		t.Errorf("Ratio empty = %v", got)
	}
}
