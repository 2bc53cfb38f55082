package costing

// Currency identifies the invoicing currency of a charge or product line.
type Currency string

const (
	// CurrencyUSD is converted to ZAR through the origin rate of exchange.
	CurrencyUSD Currency = "USD"
	// CurrencyEUR is converted to ZAR through the euro rate of exchange.
	CurrencyEUR Currency = "EUR"
	// CurrencyZAR passes through unchanged.
	CurrencyZAR Currency = "ZAR"
)

// Rates carries the rates of exchange applied during a calculation. A zero
// rate is treated as absent: conversions through it yield 0 rather than NaN,
// leaving the missing-rate condition for the caller to surface.
type Rates struct {
	// ROEOrigin converts USD amounts to ZAR.
	ROEOrigin float64 `json:"roe_origin"`
	// ROEEur converts EUR amounts to ZAR.
	ROEEur float64 `json:"roe_eur"`
	// ROECustoms optionally overrides ROEOrigin for customs-value conversion
	// of USD amounts. Zero means no override.
	ROECustoms float64 `json:"roe_customs,omitempty"`
}

// CustomsUSDRate resolves the rate used to convert USD amounts into customs
// value, preferring the customs override when one is set.
func (r Rates) CustomsUSDRate() float64 {
	if roe := ToNumber(r.ROECustoms); roe != 0 {
		return roe
	}
	return ToNumber(r.ROEOrigin)
}

// ToZAR converts an amount in the given currency to ZAR. ZAR amounts pass
// through unchanged. A missing or zero rate contributes no cost instead of
// poisoning the calculation.
func ToZAR(amount float64, currency Currency, rates Rates) float64 {
	amt := ToNumber(amount)
	switch currency {
	case CurrencyZAR:
		return amt
	case CurrencyUSD:
		roe := ToNumber(rates.ROEOrigin)
		if roe == 0 {
			return 0
		}
		return amt * roe
	case CurrencyEUR:
		roe := ToNumber(rates.ROEEur)
		if roe == 0 {
			return 0
		}
		return amt * roe
	}
	return 0
}
