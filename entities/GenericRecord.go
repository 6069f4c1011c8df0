package entities

// GenericRecord is an entry of the generic alternatives catalog.
type GenericRecord struct {
	GenericName string  `json:"generic_name"`
	UnitSize    string  `json:"unit_size"`
	MRP         float64 `json:"mrp"`
}
