// Package pricing holds the static per-service-type cost model.  It is
// a pure lookup table with no dependencies on the store or the state
// machine: the lifecycle engine asks it for estimates at creation time
// and the invoice generator asks it for the final breakdown.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is the SST rate applied to every service type (6%).
var TaxRate = decimal.NewFromFloat(0.06)

// Cost is the pricing row for one service type.  All components are in
// RM before tax.
type Cost struct {
	BaseFee   decimal.Decimal // flat service fee
	Materials decimal.Decimal // consumables / supplies
	Labor     decimal.Decimal // staff time
}

// Subtotal returns base fee + materials + labor.
func (c Cost) Subtotal() decimal.Decimal {
	return c.BaseFee.Add(c.Materials).Add(c.Labor)
}

// rm is a small constructor shorthand for the table below.
func rm(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// table maps service type → pricing row.  Amounts track the facility's
// published rate card.
var table = map[string]Cost{
	"meal":           {BaseFee: rm(15), Materials: rm(0), Labor: rm(5)},
	"laundry":        {BaseFee: rm(10), Materials: rm(2), Labor: rm(8)},
	"housekeeping":   {BaseFee: rm(20), Materials: rm(5), Labor: rm(15)},
	"transportation": {BaseFee: rm(25), Materials: rm(0), Labor: rm(10)},
	"maintenance":    {BaseFee: rm(30), Materials: rm(20), Labor: rm(25)},
	"home_care":      {BaseFee: rm(40), Materials: rm(5), Labor: rm(35)},
	"medical":        {BaseFee: rm(50), Materials: rm(10), Labor: rm(40)},
}

// defaultType is the fallback row used when an unknown type reaches the
// table.  Callers are expected to validate types at the boundary, so in
// practice this only covers historical rows written before validation
// tightened.  TODO: surface a metric when the fallback fires so stale
// rows can be found and migrated.
const defaultType = "meal"

// Lookup returns the pricing row for the given service type.  Unknown
// types fall back to the default type's row rather than failing.
func Lookup(serviceType string) Cost {
	if c, ok := table[serviceType]; ok {
		return c
	}
	return table[defaultType]
}

// Estimate returns the tax-inclusive estimated cost for one unit of the
// given service type, rounded half-up to 2 decimal places.
func Estimate(serviceType string) decimal.Decimal {
	return WithTax(Lookup(serviceType).Subtotal())
}

// WithTax applies the SST rate to a pre-tax subtotal and rounds to the
// currency minor unit (half-up).
func WithTax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromInt(1).Add(TaxRate)).Round(2)
}

// Tax returns just the SST portion of a pre-tax subtotal, rounded to
// 2 decimal places.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}
