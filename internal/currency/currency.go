// Package currency converts secondary-market compensations to the common currency
// used for aggregate statistics.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/types"
)

// Converter converts records of SecondaryCountry from SecondaryCurrency to CommonCurrency.
type Converter struct {
	Rate              decimal.Decimal // SecondaryCurrency units per CommonCurrency unit
	SecondaryCountry  string
	SecondaryCurrency string
	CommonCurrency    string
}

// NewConverter builds a converter from the market configuration.
func NewConverter(m config.MarketConfig) *Converter {
	return &Converter{
		Rate:              decimal.NewFromFloat(m.ExchangeRate),
		SecondaryCountry:  m.SecondaryCountry,
		SecondaryCurrency: m.SecondaryCurrency,
		CommonCurrency:    m.CommonCurrency,
	}
}

// IsSecondary reports whether records of country are expressed in the secondary currency.
func (c *Converter) IsSecondary(country string) bool {
	return c.SecondaryCountry != "" && country == c.SecondaryCountry
}

// CurrencyFor returns the currency records of country are expressed in.
func (c *Converter) CurrencyFor(country string) string {
	if c.IsSecondary(country) {
		return c.SecondaryCurrency
	}
	return c.CommonCurrency
}

// ToCommonUnit returns the record's compensation in the common currency, rounded to
// the nearest unit. Records outside the secondary market pass through unchanged.
func (c *Converter) ToCommonUnit(rec types.CleanedSalaryRecord) float64 {
	if !c.IsSecondary(rec.Country) || c.Rate.Sign() <= 0 {
		return rec.Compensation
	}
	v, _ := decimal.NewFromFloat(rec.Compensation).Div(c.Rate).Round(0).Float64()
	return v
}

// NormalizeForAggregation converts every record to the common currency and keeps the
// original figure alongside.
func (c *Converter) NormalizeForAggregation(recs []types.CleanedSalaryRecord) []types.NormalizedRecord {
	out := make([]types.NormalizedRecord, len(recs))
	for i, rec := range recs {
		converted := rec
		converted.Compensation = c.ToCommonUnit(rec)
		out[i] = types.NormalizedRecord{
			CleanedSalaryRecord:  converted,
			OriginalCompensation: rec.Compensation,
			OriginalCurrency:     c.CurrencyFor(rec.Country),
		}
	}
	return out
}

// Cleaned strips the retained originals, for consumers that only aggregate.
func Cleaned(recs []types.NormalizedRecord) []types.CleanedSalaryRecord {
	out := make([]types.CleanedSalaryRecord, len(recs))
	for i, r := range recs {
		out[i] = r.CleanedSalaryRecord
	}
	return out
}

// Format renders amount with thousands separated by spaces, followed by the currency
// of country, e.g. "45 000 €" or "12 000 000 FCFA".
func (c *Converter) Format(amount float64, country string) string {
	symbol := c.CurrencyFor(country)
	if symbol == "EUR" {
		symbol = "€"
	}
	return FormatAmount(amount) + " " + symbol
}

// FormatAmount rounds amount to a whole unit and groups thousands with spaces.
func FormatAmount(amount float64) string {
	return groupThousands(decimal.NewFromFloat(amount).Round(0).String())
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
