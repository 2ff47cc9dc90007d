package analytics

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// amountPrinter formats local-currency amounts with Indonesian grouping.
var amountPrinter = message.NewPrinter(language.Indonesian)

// FormatAmount renders amount as rupiah with thousands separators and at most
// two fraction digits, e.g. "Rp54.000".
func FormatAmount(amount float64) string {
	return "Rp" + amountPrinter.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}
