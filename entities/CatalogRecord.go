package entities

// CatalogRecord is a medicine entry of the reference catalog.
// Records are decoded once from the catalog store and never mutated afterwards.
type CatalogRecord struct {
	Name             string  `json:"name"`
	SaltComposition  string  `json:"salt_composition"`
	ManufacturerName string  `json:"manufacturer_name"`
	Description      string  `json:"medicine_desc"`
	SideEffects      string  `json:"side_effects,omitempty"`
	Price            float64 `json:"price"`
	PackSize         string  `json:"pack_size_label,omitempty"`
}
