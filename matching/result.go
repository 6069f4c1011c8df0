package matching

import "github.com/giygas/meditrust-api/entities"

// MatchResult is the outcome of a resolution
type MatchResult struct {
	Original     *entities.CatalogRecord
	Generic      *entities.GenericRecord
	GenericScore float64
	SaltQuery    string
	State        ResolutionState
}

// ResultPayload is the flat mapping handed to presentation layers.
// The generic fields are only present when an alternative was found.
type ResultPayload struct {
	Name            string   `json:"name"`
	SaltComposition string   `json:"salt_composition"`
	Manufacturer    string   `json:"manufacturer"`
	Description     string   `json:"description"`
	SideEffects     string   `json:"side_effects"`
	Price           float64  `json:"price"`
	PackSize        string   `json:"pack_size"`
	GenericName     *string  `json:"generic_name,omitempty"`
	UnitSize        *string  `json:"unit_size,omitempty"`
	MRP             *float64 `json:"mrp,omitempty"`
}

// Payload converts the result to its emitted form. It returns nil when no
// medicine was identified, which presentation layers render as an empty object.
func (r MatchResult) Payload() *ResultPayload {
	if r.Original == nil {
		return nil
	}

	payload := &ResultPayload{
		Name:            r.Original.Name,
		SaltComposition: r.Original.SaltComposition,
		Manufacturer:    r.Original.ManufacturerName,
		Description:     r.Original.Description,
		SideEffects:     r.Original.SideEffects,
		Price:           r.Original.Price,
		PackSize:        r.Original.PackSize,
	}

	if r.Generic != nil {
		name, unitSize, mrp := r.Generic.GenericName, r.Generic.UnitSize, r.Generic.MRP
		payload.GenericName = &name
		payload.UnitSize = &unitSize
		payload.MRP = &mrp
	}

	return payload
}

// Found reports whether a medicine was identified
func (r MatchResult) Found() bool {
	return r.Original != nil
}
