package costing

// Totals is the complete output of a landed-cost calculation. Every field is
// freshly derived from the input estimate; the engine keeps no state between
// calls.
type Totals struct {
	// Origin charge buckets in their source currencies. For aggregate
	// shipments these echo the flat fields; for product shipments each bucket
	// is the sum of that currency's invoice values.
	OriginChargesUSD float64 `json:"origin_charges_usd"`
	OriginChargesEUR float64 `json:"origin_charges_eur"`
	OriginChargesZAR float64 `json:"origin_charges_zar"`

	TotalOriginChargesZAR         float64 `json:"total_origin_charges_zar"`
	LocalChargesSubtotalZAR       float64 `json:"local_charges_subtotal_zar"`
	DestinationChargesSubtotalZAR float64 `json:"destination_charges_subtotal_zar"`
	TotalShippingCostZAR          float64 `json:"total_shipping_cost_zar"`

	CustomsValueZAR       float64 `json:"customs_value_zar"`
	DutiesZAR             float64 `json:"duties_zar"`
	Schedule1DutyZAR      float64 `json:"schedule1_duty_zar"`
	CustomsDeclarationZAR float64 `json:"customs_declaration_zar"`
	AgencyFeeZAR          float64 `json:"agency_fee_zar"`
	CustomsSubtotalZAR    float64 `json:"customs_subtotal_zar"`
	// VATZAR is reported for reference only and is excluded from the
	// warehouse cost.
	VATZAR float64 `json:"vat_zar"`

	TotalInWarehouseCostZAR    float64 `json:"total_in_warehouse_cost_zar"`
	TotalWeightKg              float64 `json:"total_weight_kg"`
	AllInWarehouseCostPerKgZAR float64 `json:"all_in_warehouse_cost_per_kg_zar"`

	Products []ProductAllocation `json:"products,omitempty"`
}

// CalculateAllTotals runs the full landed-cost calculation for the estimate.
// It is a pure function: identical input yields identical output, and no
// input causes it to fail. A non-empty product list takes precedence over the
// legacy flat weight and flat origin charges.
func CalculateAllTotals(est CostEstimate) Totals {
	t := Totals{
		LocalChargesSubtotalZAR:       SumLocalCharges(est),
		DestinationChargesSubtotalZAR: SumDestinationCharges(est),
		CustomsDeclarationZAR:         ToNumber(est.CustomsDeclarationZAR),
	}

	if len(est.Products) == 0 {
		t.OriginChargesUSD = ToNumber(est.OriginChargeUSD)
		t.OriginChargesEUR = ToNumber(est.OriginChargeEUR)

		customs := ComputeCustoms(est)
		t.CustomsValueZAR = customs.CustomsValueZAR
		t.DutiesZAR = customs.DutiesZAR
		t.AgencyFeeZAR = customs.AgencyFeeZAR
		t.VATZAR = customs.VATZAR
		t.CustomsSubtotalZAR = customs.SubtotalZAR
	} else {
		for _, p := range est.Products {
			value := ToNumber(p.InvoiceValue)
			switch p.Currency {
			case CurrencyEUR:
				t.OriginChargesEUR += value
			case CurrencyZAR:
				t.OriginChargesZAR += value
			default:
				t.OriginChargesUSD += value
			}
			customs := ComputeProductCustoms(p, est.Rates)
			t.CustomsValueZAR += customs.CustomsValueZAR
			t.DutiesZAR += customs.DutiesZAR
			t.Schedule1DutyZAR += customs.Schedule1DutyZAR
			t.VATZAR += customs.VATZAR
		}
		t.AgencyFeeZAR = AgencyFee(t.CustomsValueZAR, est.AgencyFeePercent, est.AgencyFeeMinZAR)
		t.CustomsSubtotalZAR = t.DutiesZAR + t.Schedule1DutyZAR + t.CustomsDeclarationZAR + t.AgencyFeeZAR
	}

	t.TotalOriginChargesZAR = ToZAR(t.OriginChargesUSD, CurrencyUSD, est.Rates) +
		ToZAR(t.OriginChargesEUR, CurrencyEUR, est.Rates) +
		t.OriginChargesZAR
	t.TotalShippingCostZAR = t.TotalOriginChargesZAR + t.LocalChargesSubtotalZAR + t.DestinationChargesSubtotalZAR
	t.TotalInWarehouseCostZAR = t.TotalShippingCostZAR + t.CustomsSubtotalZAR

	if len(est.Products) > 0 {
		t.TotalWeightKg = TotalWeight(est.Products)
	} else {
		t.TotalWeightKg = ToNumber(est.GrossWeightKg)
	}
	if t.TotalWeightKg > 0 {
		t.AllInWarehouseCostPerKgZAR = t.TotalInWarehouseCostZAR / t.TotalWeightKg
	}

	if len(est.Products) > 0 {
		t.Products = Allocate(est.Products, est.Rates, t.TotalShippingCostZAR)
	}
	return t
}
