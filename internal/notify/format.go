package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders a price with grouping separators, e.g. 1,250.00.
func FormatAmount(v float64) string {
	return printer.Sprintf("%.2f", v)
}
