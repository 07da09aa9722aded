package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"caseflow/internal/confirm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, confirm.Outcome{
		ID:         "conf-1",
		ToolCallID: "tc-1",
		ToolName:   "deleteCase",
		Status:     confirm.StatusCompleted,
		Result:     "case 42 deleted",
	}); err != nil {
		t.Fatalf("record completed outcome: %v", err)
	}
	if err := s.Record(ctx, confirm.Outcome{
		ID:         "conf-2",
		ToolCallID: "tc-2",
		ToolName:   "closeCase",
		Status:     confirm.StatusFailed,
		Err:        errors.New("case already closed"),
	}); err != nil {
		t.Fatalf("record failed outcome: %v", err)
	}

	got, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}

	// Newest first.
	if got[0].ToolCallID != "tc-2" {
		t.Errorf("expected tc-2 first, got %q", got[0].ToolCallID)
	}
	if got[0].Status != string(confirm.StatusFailed) || got[0].Error != "case already closed" {
		t.Errorf("failed outcome stored badly: %+v", got[0])
	}
	if got[1].ToolName != "deleteCase" || got[1].Result != "case 42 deleted" {
		t.Errorf("completed outcome stored badly: %+v", got[1])
	}
	if got[1].CreatedAt.IsZero() {
		t.Error("created_at should be populated")
	}
}

func TestListHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		out := confirm.Outcome{ID: "conf", ToolCallID: "tc", ToolName: "tool", Status: confirm.StatusCompleted}
		if err := s.Record(ctx, out); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.List(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 outcomes, got %d", len(got))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Record(ctx, confirm.Outcome{ID: "conf-1", ToolCallID: "tc-1", ToolName: "deleteCase", Status: confirm.StatusCompleted}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening re-runs migrations; they must be no-ops on a current schema.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ToolCallID != "tc-1" {
		t.Errorf("data lost across reopen: %+v", got)
	}
}

func TestListEmptyStore(t *testing.T) {
	s := openTestStore(t)
	got, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no outcomes, got %d", len(got))
	}
}
