// Package currency converts and formats prices using a static table of USD based rates.
package currency

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Default = "USD"

	// PreferenceCookie holds the display currency chosen by a visitor.
	PreferenceCookie = "preferredCurrency"
)

var ErrUnknownCurrency = errors.New("unknown currency")

type Currency struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Decimals    int     `json:"decimals"`
	SymbolAfter bool    `json:"symbol_after"`
	Rate        float64 `json:"rate"` // units per USD
}

// Snapshot rates, not live.
var currencies = map[string]Currency{
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", Decimals: 2, Rate: 1},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", Decimals: 2, Rate: 0.92},
	"GBP": {Code: "GBP", Name: "British Pound", Symbol: "£", Decimals: 2, Rate: 0.79},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Symbol: "CA$", Decimals: 2, Rate: 1.36},
	"AUD": {Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Decimals: 2, Rate: 1.52},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Decimals: 0, Rate: 149.5},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Symbol: "CHF", Decimals: 2, Rate: 0.88},
	"CNY": {Code: "CNY", Name: "Chinese Yuan", Symbol: "CN¥", Decimals: 2, Rate: 7.24},
	"INR": {Code: "INR", Name: "Indian Rupee", Symbol: "₹", Decimals: 2, Rate: 83.12},
	"MXN": {Code: "MXN", Name: "Mexican Peso", Symbol: "MX$", Decimals: 2, Rate: 17.05},
	"BRL": {Code: "BRL", Name: "Brazilian Real", Symbol: "R$", Decimals: 2, Rate: 4.97},
	"KRW": {Code: "KRW", Name: "South Korean Won", Symbol: "₩", Decimals: 0, Rate: 1320},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", Symbol: "S$", Decimals: 2, Rate: 1.34},
	"HKD": {Code: "HKD", Name: "Hong Kong Dollar", Symbol: "HK$", Decimals: 2, Rate: 7.82},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", Symbol: "NZ$", Decimals: 2, Rate: 1.64},
	"SEK": {Code: "SEK", Name: "Swedish Krona", Symbol: "kr", Decimals: 2, SymbolAfter: true, Rate: 10.42},
	"NOK": {Code: "NOK", Name: "Norwegian Krone", Symbol: "kr", Decimals: 2, SymbolAfter: true, Rate: 10.55},
	"DKK": {Code: "DKK", Name: "Danish Krone", Symbol: "kr", Decimals: 2, SymbolAfter: true, Rate: 6.87},
	"ZAR": {Code: "ZAR", Name: "South African Rand", Symbol: "R", Decimals: 2, Rate: 18.65},
	"AED": {Code: "AED", Name: "UAE Dirham", Symbol: "AED", Decimals: 2, Rate: 3.67},
}

var printer = message.NewPrinter(language.English)

// Supported lists the currencies sorted by code.
func Supported() []Currency {
	list := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

func Get(code string) (Currency, error) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, errors.Wrapf(ErrUnknownCurrency, "%q", code)
	}
	return c, nil
}

func IsSupported(code string) bool {
	_, err := Get(code)
	return err == nil
}

// Convert goes through USD: amount / rate[from] * rate[to].
func Convert(amount float64, from, to string) (float64, error) {
	src, err := Get(from)
	if err != nil {
		return 0, err
	}
	dst, err := Get(to)
	if err != nil {
		return 0, err
	}
	if src.Code == dst.Code {
		return amount, nil
	}
	return amount / src.Rate * dst.Rate, nil
}

// Round rounds amount to the decimals of the currency.
func Round(amount float64, code string) float64 {
	c, err := Get(code)
	if err != nil {
		c = currencies[Default]
	}
	p := math.Pow10(c.Decimals)
	return math.Round(amount*p) / p
}

// Format renders amount with digit grouping and the currency symbol, e.g. "$1,234.50",
// "¥1,235" or "1,234.50 kr". Unknown codes are rendered as "<amount> <code>".
func Format(amount float64, code string) string {
	c, err := Get(code)
	if err != nil {
		return printer.Sprintf("%.2f", amount) + " " + strings.ToUpper(code)
	}
	num := printer.Sprintf(fmt.Sprintf("%%.%df", c.Decimals), Round(amount, c.Code))
	if c.SymbolAfter {
		return num + " " + c.Symbol
	}
	if r := []rune(c.Symbol); unicode.IsLetter(r[len(r)-1]) {
		return c.Symbol + " " + num
	}
	return c.Symbol + num
}
