package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"invoiceinsights/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a report id does not exist.
var ErrNotFound = errors.New("report not found")

// Sync states of a stored report.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncFailed  = "error"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// PendingSyncReport is the minimal data needed to queue a report for export.
type PendingSyncReport struct {
	ID        int64
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveReport stores the report and its monthly totals in one transaction and
// returns the new id. CreatedAt is set when zero.
func (r *SQLiteRepository) SaveReport(ctx context.Context, rep *core.Report) (int64, error) {
	if rep == nil {
		return 0, errors.New("nil report")
	}
	for _, m := range rep.Monthly {
		if err := m.Month.Validate(); err != nil {
			return 0, fmt.Errorf("save report: %w: %d-%d", err, m.Month.Year, int(m.Month.Month))
		}
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = r.now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reports (file_name, prompt, language, analysis, translated_analysis,
			insufficient_data, show_trend, sync_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.FileName, rep.Prompt, rep.Language, rep.Analysis, rep.TranslatedAnalysis,
		rep.InsufficientData, rep.ShowTrend, SyncPending, rep.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read report id: %w", err)
	}

	for _, m := range rep.Monthly {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_totals (report_id, year, month, amount) VALUES (?, ?, ?, ?)`,
			id, m.Month.Year, int(m.Month.Month), m.Amount.String()); err != nil {
			return 0, fmt.Errorf("insert monthly total %s: %w", m.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit report: %w", err)
	}

	rep.ID = id
	slog.InfoContext(ctx, "Report saved to SQLite",
		"id", id,
		"file_name", rep.FileName,
		"months", len(rep.Monthly))
	return id, nil
}

// GetReport loads a report with its monthly totals in chronological order.
// Trend fields are not stored and are left empty.
func (r *SQLiteRepository) GetReport(ctx context.Context, id int64) (*core.Report, error) {
	var (
		rep       core.Report
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, prompt, language, analysis, translated_analysis,
			insufficient_data, show_trend, created_at
		FROM reports WHERE id = ?`, id).Scan(
		&rep.ID, &rep.FileName, &rep.Prompt, &rep.Language, &rep.Analysis,
		&rep.TranslatedAnalysis, &rep.InsufficientData, &rep.ShowTrend, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	if rep.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of report %d: %w", id, err)
	}

	monthly, err := r.monthlyTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	rep.Monthly = monthly
	return &rep, nil
}

func (r *SQLiteRepository) monthlyTotals(ctx context.Context, id int64) ([]core.MonthlyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year, month, amount FROM monthly_totals
		WHERE report_id = ? ORDER BY year, month`, id)
	if err != nil {
		return nil, fmt.Errorf("get monthly totals of report %d: %w", id, err)
	}
	defer rows.Close()

	var out []core.MonthlyTotal
	for rows.Next() {
		var (
			year, month int
			amount      string
		)
		if err := rows.Scan(&year, &month, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		out = append(out, core.MonthlyTotal{Month: core.NewMonth(year, month), Amount: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly totals: %w", err)
	}
	return out, nil
}

// ListPendingSync returns the oldest reports not yet exported, up to limit.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]PendingSyncReport, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM reports
		WHERE sync_status = ?
		ORDER BY created_at, id
		LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync reports: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncReport
	for rows.Next() {
		var (
			p         PendingSyncReport
			createdAt string
		)
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending report: %w", err)
		}
		if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of report %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending reports: %w", err)
	}
	return out, nil
}

// SyncStatus returns the export state of a report.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, id int64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM reports WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get sync status of report %d: %w", id, err)
	}
	return status, nil
}

// MarkSynced marks a report as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncDone, r.now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("mark report synced: %w", err)
	}
	slog.InfoContext(ctx, "Report marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a report whose export failed.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.setSyncStatus(ctx, id, SyncFailed, nil); err != nil {
		return fmt.Errorf("mark report sync error: %w", err)
	}
	slog.WarnContext(ctx, "Report marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string, syncedAt any) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET sync_status = ?, synced_at = ? WHERE id = ?`, status, syncedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
