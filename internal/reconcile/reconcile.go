// Package reconcile joins order headers and line-items into a single
// de-duplicated revenue summary. It is a pure computation over
// in-memory collections: missing fields, unparsable dates, and missing
// prices degrade to zero or ignored contributions, never to an error,
// so dirty source data cannot block a dashboard.
package reconcile

import (
	"sort"

	"github.com/starford/tokodata/internal/canon"
	"github.com/starford/tokodata/internal/models"
	"github.com/starford/tokodata/internal/record"
)

// Source says which collection supplied an order's amount. Line-items
// take precedence whenever at least one resolves to the order.
type Source string

const (
	SourceItems  Source = "line-items"
	SourceHeader Source = "header"
)

// OrderRevenue is the resolved revenue of one order.
type OrderRevenue struct {
	Amount float64 `json:"amount"`
	Source Source  `json:"source"`
}

// Summary is the output of one reconciliation pass. It is recomputed
// from scratch on every call and never persisted.
type Summary struct {
	TotalRevenue float64                 `json:"total_revenue"`
	PerOrder     map[string]OrderRevenue `json:"per_order"`
	// Monthly maps year to twelve buckets indexed by 0-based month.
	// Orders without a resolvable date are absent here but still count
	// toward TotalRevenue.
	Monthly map[int][]float64 `json:"monthly"`
	Years   []int             `json:"years"` // descending

	// Diagnostics. DuplicateItems counts line-items dropped because
	// their (order, product) pair was already seen; a source that
	// legitimately repeats a product within one order shows up here
	// instead of silently losing rows.
	DuplicateItems int `json:"duplicate_items"`
	UnkeyedItems   int `json:"unkeyed_items"`
	UndatedOrders  int `json:"undated_orders"`
}

// Revenue reconciles the three collections. Order headers whose key
// matches at least one line-item take the line-item sum (the header
// subtotal is ignored to avoid double counting); headers without items
// keep their own subtotal; orders referenced only by line-items are
// included without a monthly bucket.
func Revenue(orders, items, products models.Collection, dates canon.DateOptions) *Summary {
	sum := &Summary{
		PerOrder: make(map[string]OrderRevenue),
		Monthly:  make(map[int][]float64),
	}

	prices := priceLookup(products)

	// Per-order sums of surviving line-item amounts.
	perItems := make(map[string]float64)
	seen := make(map[[2]string]struct{}, len(items))
	for _, it := range items {
		orderKey := canon.Key(record.String(it, record.ItemOrderID))
		if orderKey == "" {
			sum.UnkeyedItems++
			continue
		}
		productKey := canon.Key(record.String(it, record.ProductCode))
		pair := [2]string{orderKey, productKey}
		if _, dup := seen[pair]; dup {
			sum.DuplicateItems++
			continue
		}
		seen[pair] = struct{}{}
		perItems[orderKey] += itemAmount(it, productKey, prices)
	}

	for _, o := range orders {
		key := canon.Key(record.String(o, record.OrderID))
		if key == "" {
			continue
		}
		if _, done := sum.PerOrder[key]; done {
			continue
		}

		var resolved OrderRevenue
		if fromItems, ok := perItems[key]; ok {
			resolved = OrderRevenue{Amount: fromItems, Source: SourceItems}
		} else {
			subtotal := record.Number(o, record.Subtotal)
			if subtotal < 0 {
				subtotal = 0
			}
			resolved = OrderRevenue{Amount: subtotal, Source: SourceHeader}
		}
		sum.PerOrder[key] = resolved

		if d := headerDate(o, dates); d != nil {
			months, ok := sum.Monthly[d.Year]
			if !ok {
				months = make([]float64, 12)
				sum.Monthly[d.Year] = months
			}
			months[d.Month] += resolved.Amount
		} else {
			sum.UndatedOrders++
		}
	}

	// Orders referenced only by line-items: counted, never bucketed
	// (no header, no date).
	for key, amount := range perItems {
		if _, ok := sum.PerOrder[key]; !ok {
			sum.PerOrder[key] = OrderRevenue{Amount: amount, Source: SourceItems}
		}
	}

	for _, rev := range sum.PerOrder {
		sum.TotalRevenue += rev.Amount
	}
	for year := range sum.Monthly {
		sum.Years = append(sum.Years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sum.Years)))

	return sum
}

// priceLookup maps canonical product codes to unit prices. The first
// record wins for a repeated code; missing or negative prices are 0.
func priceLookup(products models.Collection) map[string]float64 {
	prices := make(map[string]float64, len(products))
	for _, p := range products {
		key := canon.Key(record.String(p, record.ProductCode))
		if key == "" {
			continue
		}
		if _, ok := prices[key]; ok {
			continue
		}
		price := record.Number(p, record.UnitPrice)
		if price < 0 {
			price = 0
		}
		prices[key] = price
	}
	return prices
}

// itemAmount computes one line-item's amount: its own positive
// subtotal when present, otherwise quantity times its own price or the
// product lookup price.
func itemAmount(it models.Record, productKey string, prices map[string]float64) float64 {
	if subtotal := record.Number(it, record.Subtotal); subtotal > 0 {
		return subtotal
	}
	qty := record.Number(it, record.Quantity)
	if qty <= 0 {
		return 0
	}
	price := record.Number(it, record.UnitPrice)
	if price <= 0 {
		price = prices[productKey]
	}
	return qty * price
}

// headerDate resolves an order header's calendar date: the usual date
// fields first, then a best-effort scan of every remaining field, the
// way hand-maintained sheets sometimes bury the date in an unnamed
// column.
func headerDate(o models.Record, dates canon.DateOptions) *canon.Date {
	if raw := record.String(o, record.OrderDate); raw != "" {
		if d := canon.ParseDate(raw, dates); d != nil {
			return d
		}
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic scan order
	for _, k := range keys {
		if v := o[k]; v != nil {
			if d := canon.ParseDate(v, dates); d != nil {
				return d
			}
		}
	}
	return nil
}
