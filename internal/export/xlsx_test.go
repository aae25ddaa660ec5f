package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spendlyhq/invoice-ingest/internal/models"
)

func TestWorkbook(t *testing.T) {
	total := 1000.0
	date := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	records := []*models.InvoiceRecord{
		{
			ID:       1,
			FileName: "google.pdf",
			Platform: models.PlatformGoogleAds,
			Status:   models.StatusCompleted,
			Fields: models.ExtractedFields{
				InvoiceNumber: "INV-42",
				InvoiceDate:   &date,
				TotalAmount:   &total,
				Currency:      "INR",
			},
			CreatedAt: date,
		},
		{
			ID:       2,
			FileName: "broken.pdf",
			Platform: models.PlatformOther,
			Status:   models.StatusFailed,
		},
	}

	f, err := Workbook(records)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "google.pdf", rows[1][1])
	assert.Equal(t, "INV-42", rows[1][4])
	assert.Equal(t, "2025-03-31", rows[1][5])
	assert.Equal(t, "failed", rows[2][3])

	// Missing amounts stay blank rather than zero
	got, err := reopened.GetCellValue(sheetName, "K3")
	require.NoError(t, err)
	assert.Empty(t, got)
}
