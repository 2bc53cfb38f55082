package costing

// CostEstimate is the input aggregate for a landed-cost calculation. It is an
// immutable snapshot of a costing form or persisted record; every field may be
// zero and the calculation still produces a best-effort result.
type CostEstimate struct {
	// Identification, opaque to the arithmetic.
	Reference    string `json:"reference,omitempty"`
	SupplierName string `json:"supplier_name,omitempty"`

	Rates Rates `json:"rates"`

	// Origin charges for aggregate shipments without a product breakdown.
	OriginChargeUSD float64 `json:"origin_charge_usd"`
	OriginChargeEUR float64 `json:"origin_charge_eur"`

	// Local and transport charges, already in ZAR.
	CartageZAR        float64 `json:"cartage_zar"`
	LocalTransportZAR float64 `json:"local_transport_zar"`
	UnpackZAR         float64 `json:"unpack_zar"`
	StorageZAR        float64 `json:"storage_zar"`
	FuelSurchargeZAR  float64 `json:"fuel_surcharge_zar"`

	// Destination and port charges, already in ZAR.
	ShippingLineZAR float64 `json:"shipping_line_zar"`
	CargoDuesZAR    float64 `json:"cargo_dues_zar"`
	PortHealthZAR   float64 `json:"port_health_zar"`
	VeterinaryZAR   float64 `json:"veterinary_zar"`
	CTOZAR          float64 `json:"cto_zar"`

	// Customs fields. DutiesZAR applies only to aggregate shipments; product
	// shipments derive duties per line.
	DutiesZAR             float64 `json:"duties_zar"`
	CustomsDeclarationZAR float64 `json:"customs_declaration_zar"`
	AgencyFeePercent      float64 `json:"agency_fee_percent"`
	AgencyFeeMinZAR       float64 `json:"agency_fee_min_zar"`

	// GrossWeightKg is the legacy flat weight, consulted only when no product
	// lines are present.
	GrossWeightKg float64 `json:"gross_weight_kg"`

	Products []ProductLine `json:"products,omitempty"`
}

// ProductLine is one product sharing the container.
type ProductLine struct {
	Name     string `json:"name"`
	HSCode   string `json:"hs_code,omitempty"`
	PackSize string `json:"pack_size,omitempty"`

	WeightKg     float64  `json:"weight_kg"`
	RatePerKg    float64  `json:"rate_per_kg"`
	InvoiceValue float64  `json:"invoice_value"`
	Currency     Currency `json:"currency"`

	// Two duty rates applied independently to the same customs value.
	DutyPercent          float64 `json:"duty_percent"`
	DutySchedule1Percent float64 `json:"duty_schedule1_percent"`
}
