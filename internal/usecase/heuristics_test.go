package usecase

import (
	"testing"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/shopspring/decimal"
)

func TestDetectMerchant(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{name: "empty line", line: "", wantOK: false},
		{name: "whitespace only", line: "    ", wantOK: false},
		{name: "too short", line: "Abc", wantOK: false},
		{name: "too short after trimming", line: "  ab  ", wantOK: false},
		{name: "trims surrounding space", line: "  Acme Store ", want: "Acme Store", wantOK: true},
		{name: "counts characters not bytes", line: "Café", want: "Café", wantOK: true},
		{name: "address line qualifies", line: "123 Main St", want: "123 Main St", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectMerchant(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("detectMerchant(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("detectMerchant(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestDetectDate(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{name: "slash date after label", line: "Date: 03/14/2024", want: "03/14/2024", wantOK: true},
		{name: "dash date with short year", line: "14-3-24 10:31", want: "14-3-24", wantOK: true},
		{name: "iso date kept whole", line: "2024-03-14", want: "2024-03-14", wantOK: true},
		{name: "year first with slashes", line: "Issued 2024/3/1 at 10:00", want: "2024/3/1", wantOK: true},
		{name: "iso date glued to text", line: "x2024-03-14", want: "2024-03-14", wantOK: true},
		{name: "first date on the line wins", line: "03/14/2024 due 2024-04-14", want: "03/14/2024", wantOK: true},
		{name: "iso date with single digit parts", line: "2024-3-14", want: "2024-3-14", wantOK: true},
		{name: "merged token keeps day first reading", line: "Store 1203/14/2024", want: "03/14/2024", wantOK: true},
		{name: "merged token with impossible month", line: "T#5512/25/23", want: "12/25/23", wantOK: true},
		{name: "year first followed by more digits", line: "2024-03-145", want: "24-03-145", wantOK: true},
		{name: "no date", line: "Order 12345", wantOK: false},
		{name: "time is not a date", line: "12:30 PM", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectDate(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("detectDate(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("detectDate(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestDetectTotal(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantAmount   string
		wantCurrency domain.Currency
		wantOK       bool
	}{
		{name: "dollar total", line: "TOTAL $45.67", wantAmount: "45.67", wantCurrency: domain.CurrencyUSD, wantOK: true},
		{name: "dollar with space", line: "total $ 3.20", wantAmount: "3.20", wantCurrency: domain.CurrencyUSD, wantOK: true},
		{name: "euro code", line: "Total: 12.50 EUR", wantAmount: "12.50", wantCurrency: domain.CurrencyEUR, wantOK: true},
		{name: "lowercase euro code", line: "12.00 eur", wantAmount: "12.00", wantCurrency: domain.CurrencyEUR, wantOK: true},
		{name: "euro symbol", line: "Summe €7.10", wantAmount: "7.10", wantCurrency: domain.CurrencyEUR, wantOK: true},
		{name: "pound symbol", line: "£8.99", wantAmount: "8.99", wantCurrency: domain.CurrencyGBP, wantOK: true},
		{name: "usd beats euro", line: "€5.00 USD", wantAmount: "5.00", wantCurrency: domain.CurrencyUSD, wantOK: true},
		{name: "no marker defaults to usd", line: "Amount 19.99", wantAmount: "19.99", wantCurrency: domain.CurrencyUSD, wantOK: true},
		{name: "zero amount still matches", line: "Paid 0.00", wantAmount: "0", wantCurrency: domain.CurrencyUSD, wantOK: true},
		{name: "one fraction digit", line: "Total 1.5", wantOK: false},
		{name: "no amount", line: "Thank you for shopping", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency, ok := detectTotal(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("detectTotal(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("detectTotal(%q) amount = %s, want %s", tt.line, amount, tt.wantAmount)
			}
			if currency != tt.wantCurrency {
				t.Errorf("detectTotal(%q) currency = %s, want %s", tt.line, currency, tt.wantCurrency)
			}
		})
	}
}

func TestDetectLineItem(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		ordinal   int
		wantName  string
		wantPrice string
		wantOK    bool
	}{
		{name: "name then price", line: "Coffee 3.50", ordinal: 1, wantName: "Coffee", wantPrice: "3.50", wantOK: true},
		{name: "currency symbol is not part of the name", line: "Bread $2.99", ordinal: 1, wantName: "Bread", wantPrice: "2.99", wantOK: true},
		{name: "pound symbol", line: "Tea £2.10", ordinal: 1, wantName: "Tea", wantPrice: "2.10", wantOK: true},
		{name: "text after price is dropped", line: "Bagel 1.25 each", ordinal: 1, wantName: "Bagel", wantPrice: "1.25", wantOK: true},
		{name: "only the first price is read", line: "Coffee $3.00 x2 6.00", ordinal: 1, wantName: "Coffee", wantPrice: "3.00", wantOK: true},
		{name: "unnamed item gets ordinal", line: "   7.00", ordinal: 2, wantName: "Item 2", wantPrice: "7.00", wantOK: true},
		{name: "zero price discarded", line: "Free refill 0.00", ordinal: 1, wantOK: false},
		{name: "no price", line: "Widget", ordinal: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := detectLineItem(tt.line, tt.ordinal)
			if ok != tt.wantOK {
				t.Fatalf("detectLineItem(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if item.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", item.Name, tt.wantName)
			}
			if !item.Price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("Price = %s, want %s", item.Price, tt.wantPrice)
			}
			if !item.Quantity.Equal(decimal.NewFromInt(1)) {
				t.Errorf("Quantity = %s, want 1", item.Quantity)
			}
			if !item.LineTotal.Equal(item.Price) {
				t.Errorf("LineTotal = %s, want %s", item.LineTotal, item.Price)
			}
		})
	}
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{"invoice keyword", "INVOICE #1001", domain.DocumentTypeInvoice},
		{"bill keyword", "Utility Bill\nDue 03/01/2024", domain.DocumentTypeBill},
		{"invoice beats bill", "Bill To: Jane Doe\nTax Invoice", domain.DocumentTypeInvoice},
		{"substring match", "Billing address", domain.DocumentTypeBill},
		{"defaults to receipt", "Corner Cafe\nLatte 4.50", domain.DocumentTypeReceipt},
		{"empty text", "", domain.DocumentTypeReceipt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDocument(tt.text); got != tt.want {
				t.Errorf("classifyDocument() = %s, want %s", got, tt.want)
			}
		})
	}
}
