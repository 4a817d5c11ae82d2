package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit: amounts arrive already in
// major units.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

type CurrencyUtils struct{}

func NewCurrencyUtils() *CurrencyUtils {
	return &CurrencyUtils{}
}

// Exponent returns the number of minor-unit digits for a currency code.
func (u *CurrencyUtils) Exponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// FromMinorUnits converts an integer minor-unit amount to an exact
// fixed-point major-unit value. The conversion happens once, at intake;
// amounts are never represented as binary floating point.
func (u *CurrencyUtils) FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -u.Exponent(currency))
}

// ToMinorUnits converts a major-unit amount back to integer minor units
// using banker's rounding.
func (u *CurrencyUtils) ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := u.Exponent(currency)
	return amount.Shift(exp).RoundBank(0).IntPart()
}

// SplitTax derives the pre-tax and tax portions of a tax-inclusive total
// for the given rate, rounding the pre-tax amount to the currency's minor
// unit and carrying the remainder into tax so pretax + tax == total
// exactly.
func (u *CurrencyUtils) SplitTax(total decimal.Decimal, rate decimal.Decimal, currency string) (pretax, tax decimal.Decimal) {
	if rate.IsZero() {
		return total, decimal.Zero
	}
	divisor := decimal.New(1, 0).Add(rate)
	pretax = total.Div(divisor).RoundBank(u.Exponent(currency))
	tax = total.Sub(pretax)
	return pretax, tax
}

// FormatAmount renders a major-unit amount with the currency's minor-unit
// precision, e.g. "20.00 EUR".
func (u *CurrencyUtils) FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(u.Exponent(currency)) + " " + strings.ToUpper(currency)
}
