package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"invoiceinsights/internal/amqp"
	"invoiceinsights/internal/core"
	"invoiceinsights/internal/sheets"
	"invoiceinsights/internal/storage"
)

// ReportStore is the part of the SQLite repository the worker depends on.
type ReportStore interface {
	GetReport(ctx context.Context, id int64) (*core.Report, error)
	SyncStatus(ctx context.Context, id int64) (string, error)
	ListPendingSync(ctx context.Context, limit int) ([]storage.PendingSyncReport, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker exports the monthly totals of stored reports to a spreadsheet.
type SyncWorker struct {
	store     ReportStore
	sheets    sheets.MonthlyTotalsWriter
	batchSize int
}

func NewSyncWorker(store ReportStore, writer sheets.MonthlyTotalsWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		sheets:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports the report named by an AMQP message. Reports
// already synced are skipped so redelivered messages do not duplicate rows.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	status, err := w.store.SyncStatus(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing to retry; acknowledge and move on.
		slog.WarnContext(ctx, "Sync message for unknown report", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sync status: %w", err)
	}
	if status == storage.SyncDone {
		slog.InfoContext(ctx, "Report already synced, skipping", "id", msg.ID)
		return nil
	}

	return w.syncReport(ctx, msg.ID)
}

// ProcessPending exports one batch of reports that were never synced. It is
// the backstop for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processBatch(ctx, w.batchSize)
	return err
}

// StartupSyncCheck exports a larger batch of pending reports when the worker
// starts, to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending reports found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

// Run calls ProcessPending every interval until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending reports: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending reports", "count", len(pending))
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if err := w.syncReport(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync report", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncReport(ctx context.Context, id int64) error {
	report, err := w.store.GetReport(ctx, id)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get report from storage: %w", err)
	}

	ref, err := w.sheets.AppendMonthlyTotals(ctx, id, report.Monthly)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// The rows are already exported.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced report",
		"id", id,
		"sheets_ref", ref,
		"months", len(report.Monthly))
	return nil
}
