package state

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateRun_Defaults(t *testing.T) {
	db := setupTestDB(t)

	r := &Run{Task: "A story about the sea", TargetWords: 8000, Language: "en"}
	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("ID = %q, want a UUID", r.ID)
	}
	if r.Status != RunRunning {
		t.Errorf("Status = %q, want %q", r.Status, RunRunning)
	}
	if r.StartedAt.IsZero() {
		t.Error("StartedAt was not set")
	}

	got, err := db.GetRun(r.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Task != r.Task || got.TargetWords != 8000 || got.Language != "en" {
		t.Errorf("GetRun = %+v, want task/words/language of %+v", got, r)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
	}
	if got.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 while running", got.Duration())
	}
}

func TestCreateRun_DuplicateID(t *testing.T) {
	db := setupTestDB(t)

	if err := db.CreateRun(&Run{ID: "dup", Task: "a"}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := db.CreateRun(&Run{ID: "dup", Task: "b"}); err == nil {
		t.Error("expected error for duplicate run id")
	}
}

func TestUpdateRun(t *testing.T) {
	db := setupTestDB(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &Run{Task: "saga", TargetWords: 6000, Language: "cn", StartedAt: started}
	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	finished := started.Add(90 * time.Second)
	r.Status = RunCompleted
	r.Model = "claude-sonnet-4-20250514"
	r.Nodes = 7
	r.Leaves = 4
	r.FailedLeaves = 1
	r.OutputWords = 5800
	r.InputTokens = 12000
	r.OutputTokens = 9000
	r.OutputPath = "/tmp/saga.txt"
	r.FinishedAt = &finished
	if err := db.UpdateRun(r); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err := db.GetRun(r.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != RunCompleted {
		t.Errorf("Status = %q, want %q", got.Status, RunCompleted)
	}
	if got.Nodes != 7 || got.Leaves != 4 || got.FailedLeaves != 1 || got.OutputWords != 5800 {
		t.Errorf("counts = %d/%d/%d/%d, want 7/4/1/5800", got.Nodes, got.Leaves, got.FailedLeaves, got.OutputWords)
	}
	if got.InputTokens != 12000 || got.OutputTokens != 9000 {
		t.Errorf("tokens = %d/%d, want 12000/9000", got.InputTokens, got.OutputTokens)
	}
	if got.OutputPath != "/tmp/saga.txt" {
		t.Errorf("OutputPath = %q, want %q", got.OutputPath, "/tmp/saga.txt")
	}
	if got.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q", got.Model)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got.Duration())
	}
}

func TestUpdateRun_Failed(t *testing.T) {
	db := setupTestDB(t)

	r := &Run{Task: "saga"}
	if err := db.CreateRun(r); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	now := time.Now()
	r.Status = RunFailed
	r.Error = "no API key configured"
	r.FinishedAt = &now
	if err := db.UpdateRun(r); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, _ := db.GetRun(r.ID)
	if got.Error != "no API key configured" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestUpdateRun_Missing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.UpdateRun(&Run{ID: "ghost", Status: RunFailed}); err == nil {
		t.Error("expected error updating a missing run")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetRun = %+v, want nil", got)
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, task := range []string{"first", "second", "third"} {
		r := &Run{Task: task, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.CreateRun(r); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", task, err)
		}
	}

	all, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(ListRuns(0)) = %d, want 3", len(all))
	}
	want := []string{"third", "second", "first"}
	for i, r := range all {
		if r.Task != want[i] {
			t.Errorf("ListRuns[%d].Task = %q, want %q", i, r.Task, want[i])
		}
	}

	limited, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Task != "third" {
		t.Errorf("ListRuns(2) = %+v, want newest two", limited)
	}
}

func TestListRuns_Empty(t *testing.T) {
	db := setupTestDB(t)
	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
}

func TestPurgeOldRuns(t *testing.T) {
	db := setupTestDB(t)

	old := &Run{Task: "old", StartedAt: time.Now().Add(-48 * time.Hour)}
	recent := &Run{Task: "recent"}
	for _, r := range []*Run{old, recent} {
		if err := db.CreateRun(r); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	n, err := db.PurgeOldRuns(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeOldRuns deleted %d, want 1", n)
	}
	if got, _ := db.GetRun(old.ID); got != nil {
		t.Error("old run still present")
	}
	if got, _ := db.GetRun(recent.ID); got == nil {
		t.Error("recent run was purged")
	}
}
