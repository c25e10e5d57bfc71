// Package currency converts and formats amounts between the two supported
// display currencies, USD and INR, at a fixed rate.
package currency

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Supported currency codes
const (
	USD = "USD"
	INR = "INR"
)

// DefaultDisplay is the display currency used when the caller does not ask for one.
const DefaultDisplay = INR

// Rate is the fixed USD to INR conversion rate (1 USD = 88 INR).
var Rate = decimal.NewFromFloat(88.0)

// USDToINR converts a USD amount to INR.
func USDToINR(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(Rate)
}

// INRToUSD converts an INR amount to USD.
func INRToUSD(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(Rate)
}

// Convert converts amount from one currency to another. Identical codes and
// any pair other than USD/INR return the amount unchanged.
func Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}

	switch {
	case from == USD && to == INR:
		return USDToINR(amount)
	case from == INR && to == USD:
		return INRToUSD(amount)
	}
	return amount
}

// Symbol returns the display symbol for a currency code, or "" when unknown.
func Symbol(code string) string {
	switch code {
	case INR:
		return "₹"
	case USD:
		return "$"
	}
	return ""
}

// Format renders amount with two decimals, thousands separators and the
// currency symbol. Unknown codes are rendered without a symbol.
func Format(amount decimal.Decimal, code string) string {
	return Symbol(code) + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}

// IsSupported reports whether code is one of the display currencies.
func IsSupported(code string) bool {
	return code == USD || code == INR
}

// ParseDisplay normalizes a requested display currency. Empty or unknown
// values fall back to DefaultDisplay.
func ParseDisplay(s string) string {
	code := strings.ToUpper(strings.TrimSpace(s))
	if IsSupported(code) {
		return code
	}
	return DefaultDisplay
}

// Toggle returns the other display currency.
func Toggle(code string) string {
	if code == INR {
		return USD
	}
	return INR
}
