// Package inventory persists canonical device records and serves the
// filtered listings the dashboard consumes.
package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/calebrow/fleetsift/internal/store"
	"github.com/calebrow/fleetsift/pkg/models"
)

// Filter controls which records are returned by List.
type Filter struct {
	Category string // Filter by Category value.
	Location string // Filter by resolved location label.
	Search   string // Search computer name, serial number, or internal IP.
}

// ListOptions controls pagination and sorting for list queries.
type ListOptions struct {
	Limit     int    // Max results per page (default 50, max 1000).
	Offset    int    // Number of results to skip.
	SortBy    string // Column name (validated against an allowlist).
	SortOrder string // "asc" or "desc" (default "asc").
}

// ListResult wraps a paginated result set with a total count.
type ListResult struct {
	Items []models.DeviceRecord `json:"items"`
	Total int                   `json:"total"`
}

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("not found")

// Repository provides access to persisted device records.
type Repository interface {
	// Get returns a single record by ID.
	Get(ctx context.Context, id string) (*models.DeviceRecord, error)

	// List returns a filtered, paginated list of records.
	List(ctx context.Context, filter Filter, opts ListOptions) (*ListResult, error)

	// Create inserts a new record. If record.ID is empty, a UUID is generated.
	Create(ctx context.Context, record *models.DeviceRecord) error

	// CreateBatch inserts every record in one transaction; all or nothing.
	CreateBatch(ctx context.Context, records []models.DeviceRecord) error

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error
}

// Compile-time interface guard.
var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// Migrations returns the schema migrations for the inventory component.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create inventory_devices table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS inventory_devices (
						id               TEXT PRIMARY KEY,
						computer_name    TEXT NOT NULL DEFAULT '',
						serial_number    TEXT NOT NULL DEFAULT '',
						manufacturer     TEXT NOT NULL DEFAULT '',
						model            TEXT NOT NULL DEFAULT '',
						ram_gb           REAL NOT NULL DEFAULT 0,
						total_storage_gb REAL NOT NULL DEFAULT 0,
						free_storage_gb  REAL NOT NULL DEFAULT 0,
						drive_type       TEXT NOT NULL DEFAULT '',
						tpm_version      TEXT NOT NULL DEFAULT '',
						secure_boot      INTEGER NOT NULL DEFAULT 0,
						win11_ready      INTEGER NOT NULL DEFAULT 0,
						internal_ip      TEXT NOT NULL DEFAULT '',
						join_type        TEXT NOT NULL DEFAULT 'None',
						os_name          TEXT NOT NULL DEFAULT '',
						windows_version  TEXT NOT NULL DEFAULT '',
						last_boot        TEXT NOT NULL DEFAULT '',
						collection_date  TEXT NOT NULL DEFAULT '',
						category         TEXT NOT NULL DEFAULT 'Other',
						location         TEXT NOT NULL DEFAULT 'Unknown',
						issues           TEXT NOT NULL DEFAULT '[]',
						extra            TEXT NOT NULL DEFAULT '{}'
					)
				`)
				return err
			},
		},
		{
			Version:     2,
			Description: "index inventory_devices on category and location",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_inventory_category ON inventory_devices(category)`); err != nil {
					return err
				}
				_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_inventory_location ON inventory_devices(location)`)
				return err
			},
		},
	}
}

// NewSQLiteRepository creates a Repository and applies its migrations.
func NewSQLiteRepository(ctx context.Context, st *store.SQLiteStore) (*SQLiteRepository, error) {
	if err := st.Migrate(ctx, "inventory", Migrations()); err != nil {
		return nil, fmt.Errorf("migrate inventory: %w", err)
	}
	return &SQLiteRepository{db: st.DB()}, nil
}

// recordColumns is the shared column list for record queries.
const recordColumns = `id, computer_name, serial_number, manufacturer, model,
	ram_gb, total_storage_gb, free_storage_gb, drive_type, tpm_version,
	secure_boot, win11_ready, internal_ip, join_type, os_name,
	windows_version, last_boot, collection_date, category, location,
	issues, extra`

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.DeviceRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM inventory_devices WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %q: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, filter Filter, opts ListOptions) (*ListResult, error) {
	opts = normalizeListOptions(opts)

	// Validate sortBy against allowed columns.
	sortCol := "computer_name"
	allowedSorts := map[string]string{
		"computer_name":   "computer_name",
		"model":           "model",
		"category":        "category",
		"location":        "location",
		"collection_date": "collection_date",
		"ram_gb":          "ram_gb",
	}
	if col, ok := allowedSorts[opts.SortBy]; ok {
		sortCol = col
	}

	// Build WHERE clause with parameterized placeholders.
	where := "1=1"
	var args []any

	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Location != "" {
		where += " AND location = ?"
		args = append(args, filter.Location)
	}
	if filter.Search != "" {
		where += " AND (computer_name LIKE ? OR serial_number LIKE ? OR internal_ip LIKE ?)"
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	// Count total matching rows.
	var total int
	//nolint:gosec // where uses parameterized placeholders only
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM inventory_devices WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	// Query with pagination and sorting.
	queryArgs := make([]any, 0, len(args)+2)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, opts.Limit, opts.Offset)

	orderDir := "ASC"
	if opts.SortOrder == "desc" {
		orderDir = "DESC"
	}

	//nolint:gosec // where and sortCol are validated above, not user input
	query := fmt.Sprintf(
		"SELECT %s FROM inventory_devices WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?",
		recordColumns, where, sortCol, orderDir,
	)

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []models.DeviceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return &ListResult{Items: records, Total: total}, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, record *models.DeviceRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, insertQuery, insertArgs(record)...)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateBatch(ctx context.Context, records []models.DeviceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs(&records[i])...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
			}
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM inventory_devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const insertQuery = `
	INSERT INTO inventory_devices (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(rec *models.DeviceRecord) []any {
	issuesJSON, _ := json.Marshal(rec.Issues)
	if rec.Issues == nil {
		issuesJSON = []byte("[]")
	}
	extraJSON, _ := json.Marshal(rec.Extra)
	if rec.Extra == nil {
		extraJSON = []byte("{}")
	}
	return []any{
		rec.ID, rec.ComputerName, rec.SerialNumber, rec.Manufacturer, rec.Model,
		rec.RAMGB, rec.TotalStorageGB, rec.FreeStorageGB, rec.DriveType, rec.TPMVersion,
		rec.SecureBoot, rec.Win11Ready, rec.InternalIP, rec.JoinType, rec.OSName,
		rec.WindowsVersion, rec.LastBoot, rec.CollectionDate, string(rec.Category), rec.Location,
		string(issuesJSON), string(extraJSON),
	}
}

// scanRecord scans one row into a DeviceRecord, decoding the JSON columns.
func scanRecord(scan func(dest ...any) error) (*models.DeviceRecord, error) {
	var rec models.DeviceRecord
	var category, issuesJSON, extraJSON string
	err := scan(
		&rec.ID, &rec.ComputerName, &rec.SerialNumber, &rec.Manufacturer, &rec.Model,
		&rec.RAMGB, &rec.TotalStorageGB, &rec.FreeStorageGB, &rec.DriveType, &rec.TPMVersion,
		&rec.SecureBoot, &rec.Win11Ready, &rec.InternalIP, &rec.JoinType, &rec.OSName,
		&rec.WindowsVersion, &rec.LastBoot, &rec.CollectionDate, &category, &rec.Location,
		&issuesJSON, &extraJSON,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = models.Category(category)
	if err := json.Unmarshal([]byte(issuesJSON), &rec.Issues); err != nil {
		rec.Issues = []string{}
	}
	if extraJSON != "" && extraJSON != "{}" {
		_ = json.Unmarshal([]byte(extraJSON), &rec.Extra)
	}
	return &rec, nil
}

// normalizeListOptions applies defaults and caps to list options.
func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.SortOrder != "desc" {
		opts.SortOrder = "asc"
	}
	return opts
}
