package costing

// ProductAllocation is one row of the per-product cost breakdown: the
// product's customs costs plus its weight-proportional share of the shared
// shipping cost pool.
type ProductAllocation struct {
	Name     string   `json:"name"`
	HSCode   string   `json:"hs_code,omitempty"`
	Currency Currency `json:"currency"`

	WeightKg        float64 `json:"weight_kg"`
	WeightRatio     float64 `json:"weight_ratio"`
	InvoiceValue    float64 `json:"invoice_value"`
	CustomsValueZAR float64 `json:"customs_value_zar"`

	DutiesZAR            float64 `json:"duties_zar"`
	Schedule1DutyZAR     float64 `json:"schedule1_duty_zar"`
	VATZAR               float64 `json:"vat_zar"`
	ProductCustomsZAR    float64 `json:"product_customs_zar"`
	AllocatedShippingZAR float64 `json:"allocated_shipping_zar"`
	TotalProductCostZAR  float64 `json:"total_product_cost_zar"`
	CostPerKgZAR         float64 `json:"cost_per_kg_zar"`
}

// TotalWeight sums the declared weights of the product lines, treating
// non-finite values as zero.
func TotalWeight(products []ProductLine) float64 {
	var total float64
	for _, p := range products {
		total += ToNumber(p.WeightKg)
	}
	return total
}

// Allocate distributes the shared shipping cost pool across product lines in
// proportion to each line's share of the total declared weight, and folds in
// the per-line customs costs. With no weight information every ratio and
// allocation degrades to zero; the shares of a weighted shipment sum back to
// the full pool.
func Allocate(products []ProductLine, rates Rates, totalShippingCostZAR float64) []ProductAllocation {
	if len(products) == 0 {
		return nil
	}
	totalWeight := TotalWeight(products)
	pool := ToNumber(totalShippingCostZAR)

	out := make([]ProductAllocation, 0, len(products))
	for _, p := range products {
		weight := ToNumber(p.WeightKg)
		ratio := 0.0
		if totalWeight > 0 {
			ratio = weight / totalWeight
		}
		customs := ComputeProductCustoms(p, rates)
		shipping := pool * ratio
		productCustoms := customs.DutiesZAR + customs.Schedule1DutyZAR
		total := shipping + productCustoms
		perKg := 0.0
		if weight > 0 {
			perKg = total / weight
		}
		out = append(out, ProductAllocation{
			Name:                 p.Name,
			HSCode:               p.HSCode,
			Currency:             p.Currency,
			WeightKg:             weight,
			WeightRatio:          ratio,
			InvoiceValue:         ToNumber(p.InvoiceValue),
			CustomsValueZAR:      customs.CustomsValueZAR,
			DutiesZAR:            customs.DutiesZAR,
			Schedule1DutyZAR:     customs.Schedule1DutyZAR,
			VATZAR:               customs.VATZAR,
			ProductCustomsZAR:    productCustoms,
			AllocatedShippingZAR: shipping,
			TotalProductCostZAR:  total,
			CostPerKgZAR:         perKg,
		})
	}
	return out
}
