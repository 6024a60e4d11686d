package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimal lists processor currencies whose minor unit is the major unit.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MajorUnits converts an amount in minor units into a decimal in major units.
func MajorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimal[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// FormatAmount renders an amount for display, e.g. "50.00 USD".
func FormatAmount(amount int64, currency string) string {
	places := int32(2)
	if zeroDecimal[strings.ToLower(currency)] {
		places = 0
	}
	return MajorUnits(amount, currency).StringFixed(places) + " " + strings.ToUpper(currency)
}
