package costing

import "testing"

func TestToZARConversions(t *testing.T) {
	rates := Rates{ROEOrigin: 18.5, ROEEur: 20.1}

	if got := ToZAR(100, CurrencyUSD, rates); got != 1850 {
		t.Fatalf("expected 1850, got %v", got)
	}
	if got := ToZAR(100, CurrencyEUR, rates); got != 2010 {
		t.Fatalf("expected 2010, got %v", got)
	}
	if got := ToZAR(50, CurrencyZAR, rates); got != 50 {
		t.Fatalf("ZAR should pass through, got %v", got)
	}
}

func TestToZARMissingRate(t *testing.T) {
	if got := ToZAR(100, CurrencyUSD, Rates{}); got != 0 {
		t.Fatalf("missing USD rate should yield 0, got %v", got)
	}
	if got := ToZAR(100, CurrencyEUR, Rates{ROEOrigin: 18.5}); got != 0 {
		t.Fatalf("missing EUR rate should yield 0, got %v", got)
	}
	if got := ToZAR(100, Currency("GBP"), Rates{ROEOrigin: 18.5}); got != 0 {
		t.Fatalf("unknown currency should yield 0, got %v", got)
	}
}

func TestCustomsUSDRateOverride(t *testing.T) {
	rates := Rates{ROEOrigin: 18.5, ROECustoms: 18.9}
	if got := rates.CustomsUSDRate(); got != 18.9 {
		t.Fatalf("expected customs override 18.9, got %v", got)
	}
	rates.ROECustoms = 0
	if got := rates.CustomsUSDRate(); got != 18.5 {
		t.Fatalf("expected fallback to origin rate 18.5, got %v", got)
	}
}
