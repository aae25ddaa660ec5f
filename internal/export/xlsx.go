// Package export renders stored invoice records as spreadsheet workbooks.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

const sheetName = "Invoices"

var headers = []string{
	"ID", "File Name", "Platform", "Status", "Invoice Number", "Invoice Date",
	"Account ID", "Account Name", "Subtotal", "Tax", "Total", "Currency",
	"Billing Period Start", "Billing Period End", "Created At",
}

// Workbook builds an xlsx workbook with one row per invoice record.
// The caller owns the returned file and must Close it.
func Workbook(records []*models.InvoiceRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, rec := range records {
		values := []any{
			rec.ID,
			rec.FileName,
			string(rec.Platform),
			rec.Status,
			rec.Fields.InvoiceNumber,
			formatDate(rec.Fields.InvoiceDate),
			rec.Fields.AccountID,
			rec.Fields.AccountName,
			formatAmount(rec.Fields.Subtotal),
			formatAmount(rec.Fields.TaxAmount),
			formatAmount(rec.Fields.TotalAmount),
			rec.Fields.Currency,
			formatDate(rec.Fields.BillingPeriodStart),
			formatDate(rec.Fields.BillingPeriodEnd),
			rec.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	return f, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
