package costing

import (
	"math"
	"testing"
)

func TestAgencyFeeFloor(t *testing.T) {
	// Percentage amount 35 sits below the floor.
	if got := AgencyFee(1000, 3.5, 1187); got != 1187 {
		t.Fatalf("expected floor 1187, got %v", got)
	}
	// Above break-even the fee scales linearly.
	if got := AgencyFee(100000, 3.5, 1187); got != 3500 {
		t.Fatalf("expected 3500, got %v", got)
	}
	// No fee on an empty shipment, floor or not.
	if got := AgencyFee(0, 3.5, 1187); got != 0 {
		t.Fatalf("expected 0 on zero base, got %v", got)
	}
}

func TestComputeCustomsAggregate(t *testing.T) {
	est := CostEstimate{
		Rates:            Rates{ROEOrigin: 18.5, ROEEur: 20},
		OriginChargeUSD:  1000,
		OriginChargeEUR:  500,
		DutiesZAR:        2000,
		AgencyFeePercent: 3.5,
		AgencyFeeMinZAR:  500,
	}
	got := ComputeCustoms(est)

	wantCV := 1000*18.5 + 500*20.0
	if got.CustomsValueZAR != wantCV {
		t.Fatalf("expected customs value %v, got %v", wantCV, got.CustomsValueZAR)
	}
	if got.DutiesZAR != 2000 {
		t.Fatalf("expected duties 2000, got %v", got.DutiesZAR)
	}
	wantFee := wantCV * 3.5 / 100
	if got.AgencyFeeZAR != wantFee {
		t.Fatalf("expected agency fee %v, got %v", wantFee, got.AgencyFeeZAR)
	}
	if got.SubtotalZAR != got.DutiesZAR+got.AgencyFeeZAR {
		t.Fatalf("subtotal mismatch: %v", got.SubtotalZAR)
	}
	if got.VATZAR != (wantCV+2000)*VATRate {
		t.Fatalf("unexpected VAT %v", got.VATZAR)
	}
}

func TestComputeCustomsUsesCustomsRateForUSD(t *testing.T) {
	est := CostEstimate{
		Rates:           Rates{ROEOrigin: 18.5, ROEEur: 20, ROECustoms: 19},
		OriginChargeUSD: 100,
	}
	got := ComputeCustoms(est)
	if got.CustomsValueZAR != 1900 {
		t.Fatalf("expected 1900 via customs rate, got %v", got.CustomsValueZAR)
	}
}

func TestComputeProductCustomsPerCurrency(t *testing.T) {
	rates := Rates{ROEOrigin: 18.5, ROEEur: 20, ROECustoms: 19}

	usd := ComputeProductCustoms(ProductLine{InvoiceValue: 100, Currency: CurrencyUSD, DutyPercent: 10, DutySchedule1Percent: 5}, rates)
	if usd.CustomsValueZAR != 1900 {
		t.Fatalf("expected USD line customs value 1900, got %v", usd.CustomsValueZAR)
	}
	if usd.DutiesZAR != 190 {
		t.Fatalf("expected duties 190, got %v", usd.DutiesZAR)
	}
	if usd.Schedule1DutyZAR != 95 {
		t.Fatalf("expected schedule 1 duty 95, got %v", usd.Schedule1DutyZAR)
	}
	wantVAT := (1900 + 190 + 95) * VATRate
	if math.Abs(usd.VATZAR-wantVAT) > 1e-9 {
		t.Fatalf("expected VAT %v, got %v", wantVAT, usd.VATZAR)
	}

	eur := ComputeProductCustoms(ProductLine{InvoiceValue: 100, Currency: CurrencyEUR}, rates)
	if eur.CustomsValueZAR != 2000 {
		t.Fatalf("expected EUR line customs value 2000, got %v", eur.CustomsValueZAR)
	}

	zar := ComputeProductCustoms(ProductLine{InvoiceValue: 100, Currency: CurrencyZAR}, rates)
	if zar.CustomsValueZAR != 100 {
		t.Fatalf("expected ZAR line customs value 100, got %v", zar.CustomsValueZAR)
	}
}
