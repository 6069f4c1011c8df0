package catalog

import (
	"encoding/json"
	"testing"
)

func TestDecodeMedicine(t *testing.T) {
	tests := []struct {
		name        string
		doc         Document
		expectName  string
		expectPrice float64
		expectPack  string
		expectDesc  string
		unparsable  int
	}{
		{
			name: "export column names",
			doc: Document{
				"name": "Dolo 650 Tablet", "salt_composition": "Paracetamol (650mg)",
				"manufacturer_name": "Micro Labs Ltd", "medicine_desc": "Pain relief",
				"price(₹)": 30.91, "pack_size_label": "strip of 15 tablets",
			},
			expectName: "Dolo 650 Tablet", expectPrice: 30.91, expectPack: "strip of 15 tablets", expectDesc: "Pain relief",
		},
		{
			name: "aliases and mixed case",
			doc: Document{
				"Name": " Crocin Advance ", "Price": "₹ 1,020.50", "Pack_Size": "15 tablets", "Description": "Fever",
			},
			expectName: "Crocin Advance", expectPrice: 1020.5, expectPack: "15 tablets", expectDesc: "Fever",
		},
		{
			name:       "unparsable price defaults to zero",
			doc:        Document{"name": "Azithral 500", "price(₹)": "n/a"},
			expectName: "Azithral 500", unparsable: 1,
		},
		{
			name:       "missing and empty price are not errors",
			doc:        Document{"name": "Pan 40", "price": ""},
			expectName: "Pan 40",
		},
		{
			name:        "postgres integer price",
			doc:         Document{"name": "Calpol", "price": int64(25)},
			expectName:  "Calpol",
			expectPrice: 25,
		},
		{
			name:        "json number",
			doc:         Document{"name": "Calpol", "price": json.Number("12.5")},
			expectName:  "Calpol",
			expectPrice: 12.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			got := d.DecodeMedicine(tt.doc)

			if got.Name != tt.expectName {
				t.Errorf("Name = %q, want %q", got.Name, tt.expectName)
			}
			if got.Price != tt.expectPrice {
				t.Errorf("Price = %v, want %v", got.Price, tt.expectPrice)
			}
			if got.PackSize != tt.expectPack {
				t.Errorf("PackSize = %q, want %q", got.PackSize, tt.expectPack)
			}
			if got.Description != tt.expectDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.expectDesc)
			}
			if d.UnparsablePrices != tt.unparsable {
				t.Errorf("UnparsablePrices = %d, want %d", d.UnparsablePrices, tt.unparsable)
			}
		})
	}
}

func TestDecodeGenerics(t *testing.T) {
	docs := []Document{
		{"generic_name": "Paracetamol 650mg", "unit_size": "15 Tablets", "mrp": 14.0},
		{"GENERIC_NAME": "Ibuprofen 400mg", "generic_price": "8"},
		{"generic_name": nil, "mrp": "free"},
	}

	var d Decoder
	got := d.DecodeGenerics(docs)

	if len(got) != 3 {
		t.Fatalf("expected 3 generics, got %d", len(got))
	}
	if got[0].GenericName != "Paracetamol 650mg" || got[0].UnitSize != "15 Tablets" || got[0].MRP != 14 {
		t.Errorf("unexpected first generic %+v", got[0])
	}
	if got[1].GenericName != "Ibuprofen 400mg" || got[1].MRP != 8 {
		t.Errorf("unexpected second generic %+v", got[1])
	}
	if got[2].GenericName != "" || got[2].MRP != 0 {
		t.Errorf("unexpected third generic %+v", got[2])
	}
	if d.UnparsablePrices != 1 {
		t.Errorf("UnparsablePrices = %d, want 1", d.UnparsablePrices)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"30.91", 30.91, true},
		{"₹30.91", 30.91, true},
		{"Rs. 1,299", 1299, true},
		{"  ", 0, true},
		{"ten", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAmount(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("parseAmount(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}
