package normalizer

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyPrefix precedes every formatted amount.
const CurrencyPrefix = "R$ "

// FormatMoney renders val as Brazilian currency text, e.g.
// "1234.5" becomes "R$ 1.234,50". Values that do not parse
// as a finite number are returned unchanged.
func FormatMoney(val string) string {
	amount, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return val
	}

	return FormatAmount(amount)
}

// FormatAmount renders amount with "." as thousands
// separator, "," as decimal separator and two decimals.
// Negative amounts keep their sign even when they round
// to zero: -0.001 renders as "R$ -0,00".
func FormatAmount(amount float64) string {
	// strconv rounds correctly on the binary value; the
	// locale printer only lays out the digits.
	rounded, err := strconv.ParseFloat(
		strconv.FormatFloat(amount, 'f', 2, 64), 64,
	)
	if err != nil {
		rounded = amount
	}

	sign := ""
	if math.Signbit(rounded) {
		sign = "-"
	}

	pr := message.NewPrinter(language.BrazilianPortuguese)

	return CurrencyPrefix + sign + pr.Sprintf(
		"%v", number.Decimal(math.Abs(rounded), number.Scale(2)),
	)
}
