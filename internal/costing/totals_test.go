package costing_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/impexflow/backend-impex/internal/costing"
)

func TestCalculateAllTotalsAggregate(t *testing.T) {
	t.Parallel()

	est := costing.CostEstimate{
		Rates:            costing.Rates{ROEOrigin: 18.5},
		OriginChargeUSD:  1000,
		AgencyFeePercent: 3.5,
		AgencyFeeMinZAR:  1187,
	}
	totals := costing.CalculateAllTotals(est)

	require.Equal(t, 18500.0, totals.CustomsValueZAR)
	// Percentage amount 647.5 sits below the floor.
	require.Equal(t, 1187.0, totals.AgencyFeeZAR)
	require.Equal(t, 18500.0, totals.TotalShippingCostZAR)
	require.Equal(t, 18500.0+1187.0, totals.TotalInWarehouseCostZAR)
	require.Empty(t, totals.Products)
}

func TestCalculateAllTotalsAggregateWithCharges(t *testing.T) {
	t.Parallel()

	est := costing.CostEstimate{
		Rates:                 costing.Rates{ROEOrigin: 18.5, ROEEur: 20},
		OriginChargeUSD:       1000,
		OriginChargeEUR:       200,
		CartageZAR:            500,
		LocalTransportZAR:     750,
		UnpackZAR:             120,
		StorageZAR:            80,
		FuelSurchargeZAR:      50,
		ShippingLineZAR:       900,
		CargoDuesZAR:          300,
		PortHealthZAR:         110,
		VeterinaryZAR:         90,
		CTOZAR:                200,
		DutiesZAR:             1000,
		CustomsDeclarationZAR: 250,
		AgencyFeePercent:      3.5,
		AgencyFeeMinZAR:       500,
		GrossWeightKg:         1200,
	}
	totals := costing.CalculateAllTotals(est)

	require.Equal(t, 1500.0, totals.LocalChargesSubtotalZAR)
	require.Equal(t, 1600.0, totals.DestinationChargesSubtotalZAR)
	require.Equal(t, 18500.0+4000.0, totals.TotalOriginChargesZAR)
	require.Equal(t, 22500.0+1500.0+1600.0, totals.TotalShippingCostZAR)

	wantFee := 22500.0 * 3.5 / 100
	require.Equal(t, wantFee, totals.AgencyFeeZAR)
	require.Equal(t, 1000.0+250.0+wantFee, totals.CustomsSubtotalZAR)
	require.Equal(t, totals.TotalShippingCostZAR+totals.CustomsSubtotalZAR, totals.TotalInWarehouseCostZAR)

	// Legacy flat weight drives the per-kg figure when no products exist.
	require.Equal(t, 1200.0, totals.TotalWeightKg)
	require.InDelta(t, totals.TotalInWarehouseCostZAR/1200.0, totals.AllInWarehouseCostPerKgZAR, 1e-9)
}

func TestCalculateAllTotalsProducts(t *testing.T) {
	t.Parallel()

	est := costing.CostEstimate{
		Rates: costing.Rates{ROEOrigin: 18.5, ROEEur: 20},
		Products: []costing.ProductLine{
			{Name: "frozen fish", WeightKg: 600, InvoiceValue: 1000, Currency: costing.CurrencyUSD, DutyPercent: 10},
			{Name: "olive oil", WeightKg: 400, InvoiceValue: 500, Currency: costing.CurrencyEUR, DutySchedule1Percent: 5},
		},
		AgencyFeePercent: 3.5,
		AgencyFeeMinZAR:  100,
		// Ignored: the product list takes precedence over the flat fields.
		OriginChargeUSD: 99999,
		GrossWeightKg:   7,
	}
	totals := costing.CalculateAllTotals(est)

	require.Equal(t, 1000.0, totals.OriginChargesUSD)
	require.Equal(t, 500.0, totals.OriginChargesEUR)
	require.Equal(t, 1000*18.5+500*20.0, totals.TotalOriginChargesZAR)
	require.Equal(t, totals.TotalOriginChargesZAR, totals.TotalShippingCostZAR)

	// Customs value per line: USD uses origin rate (no override), EUR its own.
	require.Equal(t, 18500.0+10000.0, totals.CustomsValueZAR)
	require.Equal(t, 1850.0, totals.DutiesZAR)
	require.Equal(t, 500.0, totals.Schedule1DutyZAR)

	require.Equal(t, 1000.0, totals.TotalWeightKg)
	require.Len(t, totals.Products, 2)

	var allocated float64
	for _, row := range totals.Products {
		allocated += row.AllocatedShippingZAR
	}
	require.InDelta(t, totals.TotalShippingCostZAR, allocated, 1e-9)
}

func TestCalculateAllTotalsZeroInput(t *testing.T) {
	t.Parallel()

	totals := costing.CalculateAllTotals(costing.CostEstimate{})
	require.Zero(t, totals.TotalShippingCostZAR)
	require.Zero(t, totals.TotalInWarehouseCostZAR)
	require.Zero(t, totals.AgencyFeeZAR)
	require.Zero(t, totals.AllInWarehouseCostPerKgZAR)
	requireNoNaN(t, totals)
}

func TestCalculateAllTotalsDeterministic(t *testing.T) {
	t.Parallel()

	est := costing.CostEstimate{
		Rates: costing.Rates{ROEOrigin: 18.53, ROEEur: 19.97, ROECustoms: 18.91},
		Products: []costing.ProductLine{
			{Name: "A", WeightKg: 123.4, InvoiceValue: 777.77, Currency: costing.CurrencyUSD, DutyPercent: 12.5, DutySchedule1Percent: 2.2},
			{Name: "B", WeightKg: 876.6, InvoiceValue: 333.33, Currency: costing.CurrencyZAR, DutyPercent: 7},
		},
		CartageZAR:       321.09,
		AgencyFeePercent: 3.5,
		AgencyFeeMinZAR:  1187,
	}
	first := costing.CalculateAllTotals(est)
	second := costing.CalculateAllTotals(est)
	require.True(t, reflect.DeepEqual(first, second), "identical input must yield identical output")
}

func requireNoNaN(t *testing.T, totals costing.Totals) {
	t.Helper()
	v := reflect.ValueOf(totals)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() != reflect.Float64 {
			continue
		}
		require.False(t, math.IsNaN(field.Float()), "field %s is NaN", v.Type().Field(i).Name)
		require.False(t, math.IsInf(field.Float(), 0), "field %s is Inf", v.Type().Field(i).Name)
	}
}
