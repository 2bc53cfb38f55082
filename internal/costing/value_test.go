package costing

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToNumberCoercion(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want float64
	}{
		{"nil", nil, 0},
		{"float", 12.5, 12.5},
		{"negative float", -3.25, -3.25},
		{"int", 42, 42},
		{"string number", "18.5", 18.5},
		{"string with spaces", "  7 ", 7},
		{"empty string", "", 0},
		{"garbage string", "abc", 0},
		{"json number", json.Number("99.9"), 99.9},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"negative inf", math.Inf(-1), 0},
		{"unsupported type", struct{}{}, 0},
	}
	for _, tc := range cases {
		if got := ToNumber(tc.raw); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.005); got != 1.0 && got != 1.01 {
		// 1.005 is not exactly representable; accept either neighbour.
		t.Fatalf("unexpected rounding of 1.005: %v", got)
	}
	if got := Round2(2.675); got != 2.67 && got != 2.68 {
		t.Fatalf("unexpected rounding of 2.675: %v", got)
	}
	if got := Round2(10.129); got != 10.13 {
		t.Fatalf("expected 10.13, got %v", got)
	}
	if got := Round2(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to round to 0, got %v", got)
	}
}

func TestDeriveInvoiceValue(t *testing.T) {
	if got := DeriveInvoiceValue(600, 2.5); got != 1500 {
		t.Fatalf("expected 1500, got %v", got)
	}
	if got := DeriveInvoiceValue(-10, 2.5); got != 0 {
		t.Fatalf("negative weight should clamp to 0, got %v", got)
	}
	if got := DeriveInvoiceValue(10, -2.5); got != 0 {
		t.Fatalf("negative rate should clamp to 0, got %v", got)
	}
	if got := DeriveInvoiceValue(3, 0.333); got != 1.0 {
		t.Fatalf("expected 1.0 after rounding, got %v", got)
	}
}
