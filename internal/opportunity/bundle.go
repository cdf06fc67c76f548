package opportunity

// Item is one product of an opportunity bundle
type Item struct {
	SKU      string  `json:"sku"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// Bundle is a rule-detected bundle candidate tagged with an archetype
// and a confidence score in [0,1]. Type-specific fields are zero for
// other archetypes.
type Bundle struct {
	Type        string  `json:"type"`
	Items       []Item  `json:"items"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`

	// Complementary
	Frequency int     `json:"frequency,omitempty"`
	Lift      float64 `json:"lift,omitempty"`

	// Volume
	BasePrice   float64 `json:"base_price,omitempty"`
	BundlePrice float64 `json:"bundle_price,omitempty"`
	Savings     float64 `json:"savings,omitempty"`

	// Thematic
	Theme      string  `json:"theme,omitempty"`
	TotalPrice float64 `json:"total_price,omitempty"`

	// Cross-sell
	MarginScore     float64 `json:"margin_score,omitempty"`
	PopularityScore float64 `json:"popularity_score,omitempty"`
}

// SKUs returns the bundle's member SKUs in item order
func (b Bundle) SKUs() []string {
	skus := make([]string, len(b.Items))
	for i, item := range b.Items {
		skus[i] = item.SKU
	}
	return skus
}
