package usecase

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Package-level compiled regex patterns for performance
var (
	// Day- or month-first dates like "03/14/2024" or "1-2-24"
	dayFirstDatePattern = regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)

	// Year-first dates like "2024-03-14" or "2024/3/1"
	yearFirstDatePattern = regexp.MustCompile(`(\d{4}[/-]\d{1,2}[/-]\d{1,2})`)

	// Amounts with exactly two fraction digits, optionally after a dollar sign
	totalPattern = regexp.MustCompile(`(?i)\$? *(\d+\.\d{2})`)

	// Price token: optional currency symbol, optional spaces, two-decimal amount
	priceTokenPattern = regexp.MustCompile(`[$€£]? *(\d+\.\d{2})`)
)

// minMerchantLength is the number of characters a line must exceed to be taken as a merchant
const minMerchantLength = 3

// currencyMarkers lists the markers checked on the total's line, in priority order
var currencyMarkers = []struct {
	currency domain.Currency
	markers  []string
}{
	{domain.CurrencyUSD, []string{"USD", "$"}},
	{domain.CurrencyEUR, []string{"EUR", "€"}},
	{domain.CurrencyGBP, []string{"GBP", "£"}},
}

// detectMerchant returns the trimmed line when it is long enough to be a business name
func detectMerchant(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if utf8.RuneCountInString(trimmed) <= minMerchantLength {
		return "", false
	}
	return trimmed, true
}

// detectDate returns the first date-like token on the line, as written.
// Day-first wins, except that "24-03-14" inside "2024-03-14" yields the whole ISO date.
func detectDate(line string) (string, bool) {
	if loc := dayFirstDatePattern.FindStringIndex(line); loc != nil {
		if iso, ok := enclosingYearFirstDate(line, loc[0]); ok {
			return iso, true
		}
		return line[loc[0]:loc[1]], true
	}
	if m := yearFirstDatePattern.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	return "", false
}

// enclosingYearFirstDate reports a year-first date starting two characters before a day-first
// match at start. It must end the digit run and carry a plausible month and day, so merged
// tokens like "5512/25/23" keep their day-first reading.
func enclosingYearFirstDate(line string, start int) (string, bool) {
	if start < 2 {
		return "", false
	}

	rest := line[start-2:]
	loc := yearFirstDatePattern.FindStringIndex(rest)
	if loc == nil || loc[0] != 0 {
		return "", false
	}
	if loc[1] < len(rest) && isDigit(rest[loc[1]]) {
		return "", false
	}

	candidate := rest[:loc[1]]
	parts := strings.FieldsFunc(candidate, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return "", false
	}
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return candidate, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// detectTotal returns the first two-decimal amount on the line and the currency marked on it
func detectTotal(line string) (decimal.Decimal, domain.Currency, bool) {
	m := totalPattern.FindStringSubmatch(line)
	if m == nil {
		return decimal.Zero, "", false
	}
	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, detectCurrency(line), true
}

// detectCurrency checks the line for a currency code or symbol, defaulting to USD
func detectCurrency(line string) domain.Currency {
	upper := strings.ToUpper(line)
	for _, cm := range currencyMarkers {
		for _, marker := range cm.markers {
			if strings.Contains(upper, marker) {
				return cm.currency
			}
		}
	}
	return domain.DefaultCurrency
}

// detectLineItem reads one item from the first price token on the line.
// ordinal is the 1-based number the item would get, used to name items with no text.
func detectLineItem(line string, ordinal int) (domain.LineItem, bool) {
	loc := priceTokenPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return domain.LineItem{}, false
	}

	price, err := decimal.NewFromString(line[loc[2]:loc[3]])
	if err != nil || !price.IsPositive() {
		return domain.LineItem{}, false
	}

	name := strings.TrimSpace(line[:loc[0]])
	if name == "" {
		name = "Item " + strconv.Itoa(ordinal)
	}

	return domain.NewLineItem(name, decimal.NewFromInt(1), price), true
}

// classifyDocument looks for document keywords anywhere in the text; "invoice" wins over "bill"
func classifyDocument(rawText string) domain.DocumentType {
	lower := strings.ToLower(rawText)
	switch {
	case strings.Contains(lower, "invoice"):
		return domain.DocumentTypeInvoice
	case strings.Contains(lower, "bill"):
		return domain.DocumentTypeBill
	default:
		return domain.DocumentTypeReceipt
	}
}
