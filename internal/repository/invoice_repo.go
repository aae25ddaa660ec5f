// Package repository persists invoice records in SQLite.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spendlyhq/invoice-ingest/internal/models"
	"github.com/spendlyhq/invoice-ingest/pkg/database"
)

// ErrNotFound is returned when a record id does not exist
var ErrNotFound = errors.New("invoice record not found")

const recordColumns = `id, file_name, file_path, file_hash, platform, status,
	fields_json, raw_text, error_message, created_at, updated_at`

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new invoice record and fills in its assigned id
func (r *InvoiceRepository) Create(rec *models.InvoiceRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode extracted fields: %w", err)
	}

	query := `
		INSERT INTO invoices (
			file_name, file_path, file_hash, platform, status,
			fields_json, raw_text, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		rec.FileName,
		rec.FilePath,
		rec.FileHash,
		string(rec.Platform),
		rec.Status,
		string(fields),
		rec.RawText,
		rec.ErrorMessage,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice record", zap.Error(err))
		return fmt.Errorf("failed to create invoice record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// Update rewrites an existing record in full
func (r *InvoiceRepository) Update(rec *models.InvoiceRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode extracted fields: %w", err)
	}

	query := `
		UPDATE invoices SET
			file_name = ?, file_path = ?, file_hash = ?, platform = ?,
			status = ?, fields_json = ?, raw_text = ?, error_message = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		rec.FileName,
		rec.FilePath,
		rec.FileHash,
		string(rec.Platform),
		rec.Status,
		string(fields),
		rec.RawText,
		rec.ErrorMessage,
		rec.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice record",
			zap.Int64("id", rec.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update invoice record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a record by id; (nil, nil) when absent
func (r *InvoiceRepository) GetByID(id int64) (*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices WHERE id = ?"
	return r.queryOne(query, id)
}

// FindByHash returns the first record with the given content digest
func (r *InvoiceRepository) FindByHash(hash string) (*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices WHERE file_hash = ? LIMIT 1"
	return r.queryOne(query, hash)
}

// FindByNameExact returns the first record with exactly the given file name
func (r *InvoiceRepository) FindByNameExact(name string) (*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices WHERE file_name = ? LIMIT 1"
	return r.queryOne(query, name)
}

// FindByNameStem returns the first record whose file name is the given stem
// under any extension
func (r *InvoiceRepository) FindByNameStem(stem string) (*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices WHERE file_name LIKE ? ESCAPE '\\' LIMIT 1"
	return r.queryOne(query, escapeLike(stem)+".%")
}

// FindByNameFold returns the first record matching the file name
// case-insensitively
func (r *InvoiceRepository) FindByNameFold(name string) (*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices WHERE file_name = ? COLLATE NOCASE LIMIT 1"
	return r.queryOne(query, name)
}

// ListFilter narrows a listing; zero values mean no constraint
type ListFilter struct {
	Platform string
	Status   string
	Limit    int
	Offset   int
}

// List returns records newest-first, optionally filtered by platform or status
func (r *InvoiceRepository) List(filter ListFilter) ([]*models.InvoiceRecord, error) {
	query := "SELECT " + recordColumns + " FROM invoices"
	var conds []string
	var args []any

	if filter.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoice records", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice records: %w", err)
	}
	defer rows.Close()

	var records []*models.InvoiceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a record by id
func (r *InvoiceRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete invoice record",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete invoice record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PlatformStats aggregates completed invoices for one platform
type PlatformStats struct {
	Platform    string  `json:"platform"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// Stats summarizes the stored invoices for the analytics endpoint
type Stats struct {
	TotalInvoices int64            `json:"totalInvoices"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByPlatform    []PlatformStats  `json:"byPlatform"`
}

// GetStats aggregates record counts and completed invoice totals. Amounts come
// out of the stored field JSON, so records without an extracted total
// contribute zero.
func (r *InvoiceRepository) GetStats() (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int64)}

	rows, err := r.db.Query("SELECT status, COUNT(*) FROM invoices GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status aggregate: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalInvoices += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	platformRows, err := r.db.Query(`
		SELECT platform, COUNT(*),
			COALESCE(SUM(COALESCE(json_extract(fields_json, '$.total_amount'), 0)), 0)
		FROM invoices
		WHERE status = ?
		GROUP BY platform
		ORDER BY platform
	`, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate platforms: %w", err)
	}
	defer platformRows.Close()
	for platformRows.Next() {
		var ps PlatformStats
		if err := platformRows.Scan(&ps.Platform, &ps.Count, &ps.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan platform aggregate: %w", err)
		}
		stats.ByPlatform = append(stats.ByPlatform, ps)
	}
	return stats, platformRows.Err()
}

func (r *InvoiceRepository) queryOne(query string, args ...any) (*models.InvoiceRecord, error) {
	rec, err := scanRecord(r.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Invoice lookup failed", zap.Error(err))
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.InvoiceRecord, error) {
	var rec models.InvoiceRecord
	var platform, fieldsJSON string

	err := row.Scan(
		&rec.ID,
		&rec.FileName,
		&rec.FilePath,
		&rec.FileHash,
		&platform,
		&rec.Status,
		&fieldsJSON,
		&rec.RawText,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan invoice record: %w", err)
	}

	rec.Platform = models.Platform(platform)
	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode extracted fields: %w", err)
	}
	return &rec, nil
}

// escapeLike escapes LIKE metacharacters so a file name stem matches literally
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
