package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/giygas/meditrust-api/entities"
)

// Field names and their accepted aliases, first match wins
var (
	nameFields         = []string{"name"}
	saltFields         = []string{"salt_composition"}
	manufacturerFields = []string{"manufacturer_name", "manufacturer"}
	descriptionFields  = []string{"medicine_desc", "description"}
	sideEffectsFields  = []string{"side_effects"}
	priceFields        = []string{"price(₹)", "price"}
	packSizeFields     = []string{"pack_size_label", "pack_size"}

	genericNameFields = []string{"generic_name"}
	unitSizeFields    = []string{"unit_size"}
	mrpFields         = []string{"mrp", "generic_price"}
)

// fields gives case-insensitive access to a document
type fields map[string]any

func newFields(doc Document) fields {
	f := make(fields, len(doc))
	for key, value := range doc {
		f[strings.ToLower(strings.TrimSpace(key))] = value
	}
	return f
}

func (f fields) lookup(names []string) (any, bool) {
	for _, name := range names {
		if v, ok := f[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (f fields) text(names ...string) string {
	v, ok := f.lookup(names)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// number returns the numeric value of a field. Missing and empty fields are 0;
// ok is false only when a value is present but cannot be parsed.
func (f fields) number(names ...string) (value float64, ok bool) {
	v, found := f.lookup(names)
	if !found {
		return 0, true
	}

	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		return parseAmount(t)
	case []byte:
		return parseAmount(string(t))
	default:
		return 0, false
	}
}

// parseAmount parses prices such as "₹ 1,299.50"
func parseAmount(s string) (float64, bool) {
	s = strings.NewReplacer("₹", "", ",", "", "Rs.", "", "Rs", "").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Decoder converts raw documents to catalog records, counting the numeric
// fields that could not be parsed and were defaulted to 0.
type Decoder struct {
	UnparsablePrices int
}

// DecodeMedicine converts one medicine document
func (d *Decoder) DecodeMedicine(doc Document) entities.CatalogRecord {
	f := newFields(doc)

	price, ok := f.number(priceFields...)
	if !ok {
		d.UnparsablePrices++
	}

	return entities.CatalogRecord{
		Name:             f.text(nameFields...),
		SaltComposition:  f.text(saltFields...),
		ManufacturerName: f.text(manufacturerFields...),
		Description:      f.text(descriptionFields...),
		SideEffects:      f.text(sideEffectsFields...),
		Price:            price,
		PackSize:         f.text(packSizeFields...),
	}
}

// DecodeGeneric converts one generic document
func (d *Decoder) DecodeGeneric(doc Document) entities.GenericRecord {
	f := newFields(doc)

	mrp, ok := f.number(mrpFields...)
	if !ok {
		d.UnparsablePrices++
	}

	return entities.GenericRecord{
		GenericName: f.text(genericNameFields...),
		UnitSize:    f.text(unitSizeFields...),
		MRP:         mrp,
	}
}

// DecodeMedicines converts a whole medicine collection, keeping store order
func (d *Decoder) DecodeMedicines(docs []Document) []entities.CatalogRecord {
	records := make([]entities.CatalogRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, d.DecodeMedicine(doc))
	}
	return records
}

// DecodeGenerics converts a whole generic collection, keeping store order
func (d *Decoder) DecodeGenerics(docs []Document) []entities.GenericRecord {
	records := make([]entities.GenericRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, d.DecodeGeneric(doc))
	}
	return records
}
