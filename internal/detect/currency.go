package detect

import (
	"slices"
	"strings"
)

// CurrencySymbols lists the symbols the extractor recognizes in front of an amount.
var CurrencySymbols = []string{
	"¥", "$", "€", "£", "HK$", "NT$",
	"JP¥", "₩", "C$", "A$", "S$",
	"₹", "₽", "฿", "₫", "₱",
	"R$", "Fr", "Rp", "RM",
}

// symbolsByLength is CurrencySymbols ordered longest first so "HK$" wins over "$".
var symbolsByLength = func() []string {
	out := slices.Clone(CurrencySymbols)
	slices.SortStableFunc(out, func(a, b string) int {
		return len(b) - len(a)
	})
	return out
}()

// matchSymbol returns the currency symbol contained in prefix, or "".
func matchSymbol(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	for _, symbol := range symbolsByLength {
		if strings.Contains(prefix, symbol) {
			return symbol
		}
	}
	return ""
}
