package audit

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory database using the real migration.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/20261019_091500_audit_logs.up.sql")
	if err != nil {
		t.Fatalf("reading migration: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestRecord(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:     ActionCommand,
		EntityType: EntityDevice,
		EntityID:   "dev-000001",
		Subject:    "alice",
		Source:     "api",
		Outcome:    "ok",
		Details:    map[string]any{"kind": "flush"},
	}
	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("Record() did not fill ID/CreatedAt: %+v", entry)
	}

	page, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 1 || len(page.Entries) != 1 {
		t.Fatalf("List() total=%d len=%d, want 1/1", page.Total, len(page.Entries))
	}
	got := page.Entries[0]
	if got.Subject != "alice" || got.EntityID != "dev-000001" || got.Details["kind"] != "flush" {
		t.Errorf("entry = %+v", got)
	}
}

func TestRecord_RequiresActionAndEntity(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Record(context.Background(), &Entry{Action: ActionRun}); err == nil {
		t.Error("Record() without entity type error = nil")
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: ActionRegister, EntityType: EntityDevice, EntityID: "d1", Source: "api", Outcome: "ok", CreatedAt: base},
		{Action: ActionCommand, EntityType: EntityDevice, EntityID: "d1", Source: "api", Outcome: "failed", CreatedAt: base.Add(time.Second)},
		{Action: ActionRun, EntityType: EntityProgram, EntityID: "sleep", Source: "api", Outcome: "completed", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range entries {
		if err := repo.Record(ctx, &entries[i]); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{ActionRun, ActionCommand, ActionRegister}},
		{"by entity type", Filter{EntityType: EntityDevice}, []string{ActionCommand, ActionRegister}},
		{"by action", Filter{Action: ActionRun}, []string{ActionRun}},
		{"by entity id", Filter{EntityID: "d1", Limit: 1}, []string{ActionCommand}},
		{"offset", Filter{Offset: 2}, []string{ActionRegister}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(page.Entries) != len(tt.want) {
				t.Fatalf("List() len = %d, want %d", len(page.Entries), len(tt.want))
			}
			for i, action := range tt.want {
				if page.Entries[i].Action != action {
					t.Errorf("Entries[%d].Action = %q, want %q", i, page.Entries[i].Action, action)
				}
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	page, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != maxLimit || page.Offset != 0 {
		t.Errorf("Limit=%d Offset=%d, want %d/0", page.Limit, page.Offset, maxLimit)
	}
	if page.Entries == nil {
		t.Error("Entries is nil, want empty slice")
	}
}
