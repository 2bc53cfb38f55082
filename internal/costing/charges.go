package costing

// SumLocalCharges totals the fixed set of local and transport charge fields.
// Each field defaults to zero through ToNumber before summation.
func SumLocalCharges(est CostEstimate) float64 {
	return ToNumber(est.CartageZAR) +
		ToNumber(est.LocalTransportZAR) +
		ToNumber(est.UnpackZAR) +
		ToNumber(est.StorageZAR) +
		ToNumber(est.FuelSurchargeZAR)
}

// SumDestinationCharges totals the fixed set of destination and port charge
// fields.
func SumDestinationCharges(est CostEstimate) float64 {
	return ToNumber(est.ShippingLineZAR) +
		ToNumber(est.CargoDuesZAR) +
		ToNumber(est.PortHealthZAR) +
		ToNumber(est.VeterinaryZAR) +
		ToNumber(est.CTOZAR)
}

// SumOriginCharges converts the flat origin charge fields to ZAR. It applies
// only to aggregate shipments; when product lines are present the origin
// charge per currency is the sum of that currency's invoice values instead.
func SumOriginCharges(est CostEstimate) float64 {
	return ToZAR(est.OriginChargeUSD, CurrencyUSD, est.Rates) +
		ToZAR(est.OriginChargeEUR, CurrencyEUR, est.Rates)
}
