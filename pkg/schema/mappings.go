package schema

import (
	"strings"
)

// HeaderMappings maps normalized header names to canonical column names.
// Keys are lowercased with whitespace, underscores and hyphens removed.
var HeaderMappings = map[string]string{
	// Product reference
	"productid":  "product_id",
	"prodid":     "product_id",
	"productref": "product_id",
	"productno":  "product_id",
	"sku":        "product_id",

	// Transaction
	"transactionid":   "transaction_id",
	"txnid":           "transaction_id",
	"txid":            "transaction_id",
	"transactiondate": "transaction_date",
	"txndate":         "transaction_date",
	"date":            "transaction_date",

	// Customer
	"customerid": "customer_id",
	"custid":     "customer_id",
	"clientid":   "customer_id",

	// Product attributes
	"productname":    "product_name",
	"name":           "product_name",
	"category":       "category",
	"stockavailable": "stock_available",
	"stock":          "stock_available",
	"instock":        "stock_available",

	// Quantities and money
	"quantity":    "quantity",
	"qty":         "quantity",
	"price":       "price",
	"unitprice":   "price",
	"totalamount": "total_amount",
	"total":       "total_amount",
	"amount":      "total_amount",
}

// CanonicalColumn returns the canonical name for a header. Unknown headers
// are returned lowercased and trimmed.
func CanonicalColumn(header string) string {
	if target, ok := HeaderMappings[normalizeHeader(header)]; ok {
		return target
	}
	return strings.ToLower(strings.TrimSpace(header))
}

// findColumn locates a declared column regardless of how the source spelled
// its header. It returns -1 when the table has no such column.
func findColumn(t *Table, name string) int {
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx
	}
	want := CanonicalColumn(name)
	for i, c := range t.Columns {
		if CanonicalColumn(c) == want {
			return i
		}
	}
	return -1
}

// normalizeHeader lowercases a header string and strips whitespace, underscores, and hyphens.
func normalizeHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
