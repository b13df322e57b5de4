package domain

import "github.com/shopspring/decimal"

// DocumentType classifies a scanned financial document
type DocumentType string

const (
	DocumentTypeReceipt DocumentType = "receipt"
	DocumentTypeInvoice DocumentType = "invoice"
	DocumentTypeBill    DocumentType = "bill"
)

// Currency is the ISO code inferred for the document total
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// Defaults applied when a heuristic finds nothing
const (
	DefaultMerchantName = "Unknown Merchant"
	DefaultCurrency     = CurrencyUSD
	DateLayout          = "2006-01-02"

	// PlaceholderItemName marks a document whose text was read but whose items could not be segmented
	PlaceholderItemName = "Extracted Text (Parsing Needed)"
)

// LineItem is a single purchased item on a document
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewLineItem builds a LineItem whose LineTotal is quantity * price
func NewLineItem(name string, quantity, price decimal.Decimal) LineItem {
	return LineItem{
		Name:      name,
		Quantity:  quantity,
		Price:     price,
		LineTotal: quantity.Mul(price),
	}
}

// StructuredRecord is the typed result of one extraction call
type StructuredRecord struct {
	DocumentType    DocumentType    `json:"document_type"`
	MerchantName    string          `json:"merchant_name"`
	TransactionDate string          `json:"transaction_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        Currency        `json:"currency"`
	LineItems       []LineItem      `json:"line_items"`
	RawOCRText      string          `json:"raw_ocr_text"`
}

// ProcessedDocument wraps a record with the OCR run that produced it
type ProcessedDocument struct {
	Record          *StructuredRecord `json:"data"`
	ExtractedText   string            `json:"extracted_text"`
	ProcessedTimeMs float64           `json:"processed_time_ms"`
	Source          string            `json:"source"` // "ocr" or "cache"
}
