package usecase

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Default scan windows, in lines
const (
	DefaultMerchantLines = 3
	DefaultHeaderLines   = 3
	DefaultFooterLines   = 3
)

// ExtractorConfig holds configuration for the field extractor
type ExtractorConfig struct {
	MerchantLines int // leading lines searched for a merchant name
	HeaderLines   int // leading lines never read as line items
	FooterLines   int // trailing lines never read as line items
	Now           func() time.Time
}

// Extractor turns OCR text lines into a StructuredRecord.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	merchantLines int
	headerLines   int
	footerLines   int
	now           func() time.Time
}

// NewExtractor creates a new extractor with the given configuration
func NewExtractor(config ExtractorConfig) *Extractor {
	merchantLines := config.MerchantLines
	if merchantLines <= 0 {
		merchantLines = DefaultMerchantLines
	}

	headerLines := config.HeaderLines
	if headerLines <= 0 {
		headerLines = DefaultHeaderLines
	}

	footerLines := config.FooterLines
	if footerLines <= 0 {
		footerLines = DefaultFooterLines
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Extractor{
		merchantLines: merchantLines,
		headerLines:   headerLines,
		footerLines:   footerLines,
		now:           now,
	}
}

// extraction tracks what the pass has committed so far.
// Each field has an explicit found flag so a legitimate zero total still counts.
type extraction struct {
	merchant      string
	merchantFound bool
	date          string
	dateFound     bool
	total         decimal.Decimal
	currency      domain.Currency
	totalFound    bool
	items         []domain.LineItem
}

// Extract runs every heuristic over lines in a single forward pass.
// Missing fields fall back to defaults; the only error is a nil or non-UTF-8 input.
func (e *Extractor) Extract(lines []string) (*domain.StructuredRecord, error) {
	if lines == nil {
		return nil, fmt.Errorf("%w: lines must not be nil", domain.ErrInvalidInput)
	}
	for i, line := range lines {
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("%w: line %d is not valid UTF-8 text", domain.ErrInvalidInput, i)
		}
	}

	state := extraction{items: []domain.LineItem{}}
	itemsEnd := len(lines) - e.footerLines

	for i, line := range lines {
		if !state.merchantFound && i < e.merchantLines {
			state.merchant, state.merchantFound = detectMerchant(line)
		}

		if !state.dateFound {
			state.date, state.dateFound = detectDate(line)
		}

		if !state.totalFound {
			state.total, state.currency, state.totalFound = detectTotal(line)
		}

		if i >= e.headerLines && i < itemsEnd {
			if item, ok := detectLineItem(line, len(state.items)+1); ok {
				state.items = append(state.items, item)
			}
		}
	}

	rawText := strings.Join(lines, "\n")
	return e.assemble(state, rawText), nil
}

// assemble applies defaults for anything the pass did not find
func (e *Extractor) assemble(state extraction, rawText string) *domain.StructuredRecord {
	record := &domain.StructuredRecord{
		DocumentType:    classifyDocument(rawText),
		MerchantName:    domain.DefaultMerchantName,
		TransactionDate: e.now().Format(domain.DateLayout),
		TotalAmount:     decimal.Zero,
		Currency:        domain.DefaultCurrency,
		LineItems:       state.items,
		RawOCRText:      rawText,
	}

	if state.merchantFound {
		record.MerchantName = state.merchant
	}
	if state.dateFound {
		record.TransactionDate = state.date
	}
	if state.totalFound {
		record.TotalAmount = state.total
		record.Currency = state.currency
	}

	if len(record.LineItems) == 0 && rawText != "" {
		record.LineItems = append(record.LineItems,
			domain.NewLineItem(domain.PlaceholderItemName, decimal.NewFromInt(1), decimal.Zero))
	}

	return record
}
