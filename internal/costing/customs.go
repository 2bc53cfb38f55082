package costing

// VATRate is the fixed VAT rate applied to the customs base. VAT is computed
// for display and reconciliation only; it never enters the warehouse cost.
const VATRate = 0.15

// CustomsResult is the aggregate-mode customs breakdown for a shipment
// without product lines.
type CustomsResult struct {
	CustomsValueZAR float64 `json:"customs_value_zar"`
	DutiesZAR       float64 `json:"duties_zar"`
	AgencyFeeZAR    float64 `json:"agency_fee_zar"`
	VATZAR          float64 `json:"vat_zar"`
	SubtotalZAR     float64 `json:"subtotal_zar"`
}

// ProductCustoms is the per-line customs breakdown for one product.
type ProductCustoms struct {
	CustomsValueZAR  float64 `json:"customs_value_zar"`
	DutiesZAR        float64 `json:"duties_zar"`
	Schedule1DutyZAR float64 `json:"schedule1_duty_zar"`
	VATZAR           float64 `json:"vat_zar"`
}

// ComputeCustoms derives the customs breakdown for an aggregate shipment. The
// customs value converts the origin charges using the customs rate override
// for USD when one is set. The agency fee is a percentage of customs value
// with a contractual floor; an empty shipment pays no fee at all.
func ComputeCustoms(est CostEstimate) CustomsResult {
	usd := ToNumber(est.OriginChargeUSD) * est.Rates.CustomsUSDRate()
	eur := ToNumber(est.OriginChargeEUR) * ToNumber(est.Rates.ROEEur)
	customsValue := usd + eur

	duties := ToNumber(est.DutiesZAR)
	declaration := ToNumber(est.CustomsDeclarationZAR)
	agency := AgencyFee(customsValue, est.AgencyFeePercent, est.AgencyFeeMinZAR)
	vat := (customsValue + duties) * VATRate

	return CustomsResult{
		CustomsValueZAR: customsValue,
		DutiesZAR:       duties,
		AgencyFeeZAR:    agency,
		VATZAR:          vat,
		SubtotalZAR:     duties + declaration + agency,
	}
}

// AgencyFee returns the clearing-agent fee for the given customs value. The
// percentage amount is floored at the configured minimum, except on a zero
// base where no fee applies.
func AgencyFee(customsValueZAR, percent, minZAR float64) float64 {
	base := ToNumber(customsValueZAR)
	if base == 0 {
		return 0
	}
	fee := base * ToNumber(percent) / 100
	if floor := ToNumber(minZAR); fee < floor {
		return floor
	}
	return fee
}

// ComputeProductCustoms derives the customs breakdown for a single product
// line. The per-line rate of exchange is resolved from the line currency:
// ZAR lines use 1, EUR lines the euro rate, anything else the customs rate
// (falling back to the origin rate).
func ComputeProductCustoms(p ProductLine, rates Rates) ProductCustoms {
	var roe float64
	switch p.Currency {
	case CurrencyZAR:
		roe = 1
	case CurrencyEUR:
		roe = ToNumber(rates.ROEEur)
	default:
		roe = rates.CustomsUSDRate()
	}

	customsValue := ToNumber(p.InvoiceValue) * roe
	duties := customsValue * ToNumber(p.DutyPercent) / 100
	schedule1 := customsValue * ToNumber(p.DutySchedule1Percent) / 100
	vat := (customsValue + duties + schedule1) * VATRate

	return ProductCustoms{
		CustomsValueZAR:  customsValue,
		DutiesZAR:        duties,
		Schedule1DutyZAR: schedule1,
		VATZAR:           vat,
	}
}
