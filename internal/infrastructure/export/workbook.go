package export

import (
	"fmt"

	"github.com/receiptsense/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the generated workbook
const (
	SummarySheet   = "Summary"
	LineItemsSheet = "Line Items"
)

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var lineItemHeaders = []string{"Item", "Quantity", "Unit Price", "Total"}

// RecordWorkbook renders a record as an XLSX workbook: a summary sheet and a line item table
func RecordWorkbook(record *domain.StructuredRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: record must not be nil", domain.ErrInvalidInput)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, record); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := writeLineItems(f, record.LineItems); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, record *domain.StructuredRecord) error {
	rows := [][]interface{}{
		{"Document Type", string(record.DocumentType)},
		{"Merchant", record.MerchantName},
		{"Date", record.TransactionDate},
		{"Total", record.TotalAmount.InexactFloat64()},
		{"Currency", string(record.Currency)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeLineItems(f *excelize.File, items []domain.LineItem) error {
	header := make([]interface{}, len(lineItemHeaders))
	for i, h := range lineItemHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(LineItemsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, item := range items {
		row := []interface{}{
			item.Name,
			item.Quantity.InexactFloat64(),
			item.Price.InexactFloat64(),
			item.LineTotal.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(LineItemsSheet, cell, &row); err != nil {
			return fmt.Errorf("write item row %d: %w", i+2, err)
		}
	}
	return nil
}
