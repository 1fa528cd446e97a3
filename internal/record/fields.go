// Package record resolves concepts against records whose field names
// vary by source. Each concept has one ordered list of candidate field
// names; every lookup in the codebase goes through the helpers here
// instead of ad hoc per-call fallbacks.
package record

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/tokodata/internal/models"
)

// Candidate field names per concept, in resolution order.
var (
	// OrderID identifies an order header.
	OrderID = []string{"ID_NOTA", "NOTA", "NOMOR", "NO", "ID"}

	// ItemOrderID identifies the order a line-item belongs to.
	ItemOrderID = []string{"NOTA", "NOMOR", "NOTA_PENJUALAN", "ID_NOTA"}

	// ProductCode identifies a product, on both product records and
	// line-items.
	ProductCode = []string{"KODE", "KODE_BARANG", "BARANG"}

	// UnitPrice is a per-unit price.
	UnitPrice = []string{"HARGA", "HARGA_SATUAN", "PRICE"}

	// Quantity is a line-item quantity.
	Quantity = []string{"QTY", "JUMLAH", "QUANTITY"}

	// Subtotal is a precomputed amount on a header or line-item.
	Subtotal = []string{"SUBTOTAL", "SUB_TOTAL", "TOTAL"}

	// OrderDate is the date on an order header.
	OrderDate = []string{"TGL", "TANGGAL", "DATE", "CREATED_AT"}
)

// Field returns the first present, non-nil value among the candidate
// field names. Candidates match exactly first, then case-insensitively
// (sources disagree on casing as well as naming).
func Field(r models.Record, candidates []string) (any, bool) {
	if r == nil {
		return nil, false
	}
	for _, name := range candidates {
		if v, ok := r[name]; ok && v != nil {
			return v, true
		}
	}
	for _, name := range candidates {
		for k, v := range r {
			if v != nil && strings.EqualFold(k, name) {
				return v, true
			}
		}
	}
	return nil, false
}

// String resolves a concept to a trimmed string, "" when absent.
func String(r models.Record, candidates []string) string {
	v, ok := Field(r, candidates)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// Number resolves a concept to a float64, 0 when absent or not
// interpretable as a number.
func Number(r models.Record, candidates []string) float64 {
	v, ok := Field(r, candidates)
	if !ok {
		return 0
	}
	return Numeric(v)
}

// Numeric coerces a scalar to float64. Values that cast cannot handle
// directly (currency strings like "Rp 1.500") are reduced to their
// digits and sign before a second attempt. Unparseable input is 0.
func Numeric(v any) float64 {
	if f, err := cast.ToFloat64E(v); err == nil {
		return f
	}
	s := cast.ToString(v)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || digits == "-" {
		return 0
	}
	f, err := cast.ToFloat64E(digits)
	if err != nil {
		return 0
	}
	return f
}
