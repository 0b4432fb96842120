package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoiceinsights/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "insights.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleReport() *core.Report {
	return &core.Report{
		FileName: "invoices.pdf",
		Prompt:   "Show monthly trend",
		Language: "fr",
		Analysis: "2024-01-15  $100\n2024-02-10  $150",
		Monthly: []core.MonthlyTotal{
			{Month: core.NewMonth(2024, 1), Amount: decimal.RequireFromString("100")},
			{Month: core.NewMonth(2024, 2), Amount: decimal.RequireFromString("150.75")},
		},
		TranslatedAnalysis: "analyse",
		ShowTrend:          true,
	}
}

func TestSaveAndGetReport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rep := sampleReport()
	id, err := repo.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if id <= 0 || rep.ID != id {
		t.Fatalf("unexpected id %d (report id %d)", id, rep.ID)
	}
	if rep.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}

	got, err := repo.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.FileName != rep.FileName || got.Prompt != rep.Prompt || got.Language != rep.Language {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.Analysis != rep.Analysis || got.TranslatedAnalysis != rep.TranslatedAnalysis {
		t.Fatalf("text mismatch: %+v", got)
	}
	if !got.ShowTrend || got.InsufficientData {
		t.Fatalf("flags mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(rep.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, rep.CreatedAt)
	}
	if len(got.Monthly) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got.Monthly))
	}
	for i, m := range got.Monthly {
		want := rep.Monthly[i]
		if m.Month != want.Month || !m.Amount.Equal(want.Amount) {
			t.Errorf("month %d = %v %s, want %v %s", i, m.Month, m.Amount, want.Month, want.Amount)
		}
	}
}

func TestGetReportNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetReport(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveReportWithoutMonths(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, err := repo.SaveReport(ctx, &core.Report{Prompt: "p", Analysis: "nothing here", InsufficientData: true})
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, err := repo.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if len(got.Monthly) != 0 || !got.InsufficientData {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		rep := sampleReport()
		rep.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		id, err := repo.SaveReport(ctx, rep)
		if err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
		ids = append(ids, id)
	}

	pending, err := repo.ListPendingSync(ctx, 2)
	if err != nil {
		t.Fatalf("ListPendingSync: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[1] {
		t.Fatalf("unexpected pending batch: %+v", pending)
	}

	if err := repo.MarkSynced(ctx, ids[0]); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, ids[1]); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	pending, err = repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Fatalf("expected only report %d pending, got %+v", ids[2], pending)
	}

	for id, want := range map[int64]string{ids[0]: SyncDone, ids[1]: SyncFailed, ids[2]: SyncPending} {
		got, err := repo.SyncStatus(ctx, id)
		if err != nil || got != want {
			t.Errorf("SyncStatus(%d) = %q, %v; want %q", id, got, err, want)
		}
	}
}

func TestSaveReportRejectsInvalidMonth(t *testing.T) {
	repo := newTestRepo(t)
	rep := sampleReport()
	rep.Monthly = append(rep.Monthly, core.MonthlyTotal{Month: core.NewMonth(2024, 13), Amount: decimal.NewFromInt(1)})

	if _, err := repo.SaveReport(context.Background(), rep); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if rep.ID != 0 {
		t.Fatalf("report id assigned on failed save: %d", rep.ID)
	}
}

func TestMarkUnknownReport(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.MarkSynced(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.MarkSyncError(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPendingSyncNonPositiveLimit(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.SaveReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, err := repo.ListPendingSync(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.Close()
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}
