package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/batch"
	"github.com/spendlyhq/invoice-ingest/internal/dedup"
	"github.com/spendlyhq/invoice-ingest/internal/extract"
	"github.com/spendlyhq/invoice-ingest/internal/interfaces/ws"
	"github.com/spendlyhq/invoice-ingest/internal/notify"
	"github.com/spendlyhq/invoice-ingest/internal/repository"
	"github.com/spendlyhq/invoice-ingest/internal/storage"
	"github.com/spendlyhq/invoice-ingest/pkg/database"
)

// passthroughText stands in for the PDF text extractor; uploads carry their
// "text" as file content.
type passthroughText struct{}

func (passthroughText) ExtractText(pdfBytes []byte) (string, error) {
	return string(pdfBytes), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zap.NewNop()
	base := t.TempDir()

	db, err := database.New(database.Config{
		Path:         filepath.Join(base, "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations())

	repo := repository.NewInvoiceRepository(db, logger)
	files, err := storage.NewLocalFileStore(
		filepath.Join(base, "tmp"), filepath.Join(base, "uploads"), logger)
	require.NoError(t, err)

	hub := notify.NewHub(logger)
	coordinator := batch.NewCoordinator(
		batch.DefaultConfig(),
		repo,
		files,
		passthroughText{},
		extract.NewExtractor(nil, logger),
		dedup.NewDetector(repo, logger),
		hub,
		logger,
	)

	return NewServer(
		Config{Host: "127.0.0.1", Port: 0, MaxUploadSize: 10 << 20},
		coordinator, repo, files, ws.NewHandler(hub, logger), logger,
	)
}

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func doJSON(t *testing.T, server *Server, method, url string, body *bytes.Buffer, contentType string) (int, map[string]any) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w.Code, parsed
}

func uploadAndFinish(t *testing.T, server *Server, files map[string][]byte) string {
	t.Helper()
	body, contentType := multipartUpload(t, files)
	code, resp := doJSON(t, server, http.MethodPost, "/api/uploads", body, contentType)
	require.Equal(t, http.StatusAccepted, code)

	runID := resp["data"].(map[string]any)["runId"].(string)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		_, resp := doJSON(t, server, http.MethodGet, "/api/uploads/"+runID, nil, "")
		data := resp["data"].(map[string]any)
		return data["state"] == batch.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	return runID
}

func TestUploadLifecycle(t *testing.T) {
	server := newTestServer(t)

	runID := uploadAndFinish(t, server, map[string][]byte{
		"google.pdf": []byte("Google Ads Invoice number: INV-100 Total in INR 500.00"),
	})

	code, resp := doJSON(t, server, http.MethodGet, "/api/uploads/"+runID, nil, "")
	require.Equal(t, http.StatusOK, code)
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["successful"])
	assert.Equal(t, float64(1), data["totalFiles"])

	code, resp = doJSON(t, server, http.MethodGet, "/api/invoices", nil, "")
	require.Equal(t, http.StatusOK, code)
	records := resp["data"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "google.pdf", rec["file_name"])
	assert.Equal(t, "google_ads", rec["platform"])

	id := int64(rec["id"].(float64))
	code, resp = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/invoices/%d", id), nil, "")
	require.Equal(t, http.StatusOK, code)
	fields := resp["data"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "INV-100", fields["invoice_number"])
}

func TestUpload_NoFiles(t *testing.T) {
	server := newTestServer(t)

	body, contentType := multipartUpload(t, nil)
	code, resp := doJSON(t, server, http.MethodPost, "/api/uploads", body, contentType)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, resp["success"])
}

func TestRun_NotFound(t *testing.T) {
	server := newTestServer(t)

	code, _ := doJSON(t, server, http.MethodGet, "/api/uploads/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doJSON(t, server, http.MethodPost, "/api/uploads/missing/pause", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDuplicateUploadRejected(t *testing.T) {
	server := newTestServer(t)

	uploadAndFinish(t, server, map[string][]byte{
		"invoice.pdf": []byte("Meta ads invoice"),
	})
	runID := uploadAndFinish(t, server, map[string][]byte{
		"copy.pdf": []byte("Meta ads invoice"),
	})

	_, resp := doJSON(t, server, http.MethodGet, "/api/uploads/"+runID, nil, "")
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(1), data["duplicates"])

	results := data["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, dedup.ReasonContent, results[0].(map[string]any)["reason"])
}

func TestDeleteInvoiceFreesTheName(t *testing.T) {
	server := newTestServer(t)

	uploadAndFinish(t, server, map[string][]byte{
		"once.pdf": []byte("Google Ads invoice"),
	})

	_, resp := doJSON(t, server, http.MethodGet, "/api/invoices", nil, "")
	rec := resp["data"].([]any)[0].(map[string]any)
	id := int64(rec["id"].(float64))

	code, _ := doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/invoices/%d", id), nil, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/invoices/%d", id), nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	// Re-uploading the same content now succeeds
	runID := uploadAndFinish(t, server, map[string][]byte{
		"once.pdf": []byte("Google Ads invoice"),
	})
	_, resp = doJSON(t, server, http.MethodGet, "/api/uploads/"+runID, nil, "")
	assert.Equal(t, float64(1), resp["data"].(map[string]any)["successful"])
}

func TestAnalyticsSummary(t *testing.T) {
	server := newTestServer(t)

	uploadAndFinish(t, server, map[string][]byte{
		"g.pdf": []byte("Google Ads invoice Total in INR 100.00"),
		"m.pdf": []byte("Meta advertising invoice"),
	})

	code, resp := doJSON(t, server, http.MethodGet, "/api/analytics/summary", nil, "")
	require.Equal(t, http.StatusOK, code)
	data := resp["data"].(map[string]any)
	assert.Equal(t, float64(2), data["totalInvoices"])
}

func TestExportInvoices(t *testing.T) {
	server := newTestServer(t)

	uploadAndFinish(t, server, map[string][]byte{
		"g.pdf": []byte("Google Ads invoice"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/export/invoices", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoices.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t)

	code, resp := doJSON(t, server, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["success"])
}
