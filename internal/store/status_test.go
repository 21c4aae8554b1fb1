package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestElementStatuses_EmptyWhenUnsynced(t *testing.T) {
	s := openTestStore(t)

	statuses, err := s.ElementStatuses(context.Background(), "stream-1", "model-1")
	if err != nil {
		t.Fatalf("ElementStatuses() failed: %v", err)
	}
	if statuses == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(statuses) != 0 {
		t.Errorf("statuses = %d, want 0", len(statuses))
	}
}

func TestElementStatuses_OrderedByGlobalID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SyncModel(ctx, "stream-1", "model-1", "commit-1", testElements()); err != nil {
		t.Fatalf("SyncModel() failed: %v", err)
	}

	statuses, err := s.ElementStatuses(ctx, "stream-1", "model-1")
	if err != nil {
		t.Fatalf("ElementStatuses() failed: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("statuses = %d, want 3", len(statuses))
	}
	for i, want := range []string{"G1", "G2", "G3"} {
		if statuses[i].GlobalID != want {
			t.Errorf("statuses[%d].GlobalID = %q, want %q", i, statuses[i].GlobalID, want)
		}
		if statuses[i].Status != DefaultStatus {
			t.Errorf("statuses[%d].Status = %q, want default", i, statuses[i].Status)
		}
	}
	if statuses[0].SpeckleID != "obj-1" {
		t.Errorf("SpeckleID = %q, want obj-1", statuses[0].SpeckleID)
	}
}

func TestUpdateStatuses_CountsUpdatedRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SyncModel(ctx, "stream-1", "model-1", "commit-1", testElements()); err != nil {
		t.Fatalf("SyncModel() failed: %v", err)
	}

	n, err := s.UpdateStatuses(ctx, []string{"G1", "G3"}, "approved")
	if err != nil {
		t.Fatalf("UpdateStatuses() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}

	statuses, err := s.ElementStatuses(ctx, "stream-1", "model-1")
	if err != nil {
		t.Fatalf("ElementStatuses() failed: %v", err)
	}
	byID := map[string]string{}
	for _, st := range statuses {
		byID[st.GlobalID] = st.Status
	}
	if byID["G1"] != "approved" || byID["G3"] != "approved" {
		t.Errorf("G1/G3 = %q/%q, want approved", byID["G1"], byID["G3"])
	}
	if byID["G2"] != DefaultStatus {
		t.Errorf("G2 = %q, want default", byID["G2"])
	}
}

func TestUpdateStatuses_UnknownIDsAreNotAnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SyncModel(ctx, "stream-1", "model-1", "commit-1", testElements()); err != nil {
		t.Fatalf("SyncModel() failed: %v", err)
	}

	n, err := s.UpdateStatuses(ctx, []string{"G1", "missing"}, "approved")
	if err != nil {
		t.Fatalf("UpdateStatuses() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}
}

func TestUpdateStatuses_EmptyIDs(t *testing.T) {
	s := openTestStore(t)

	n, err := s.UpdateStatuses(context.Background(), nil, "approved")
	if err != nil {
		t.Fatalf("UpdateStatuses() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0", n)
	}
}

func TestUpdateStatuses_StampsTimestamp(t *testing.T) {
	s := openTestStore(t)
	at := time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC)
	fixedClock(s, at)
	ctx := context.Background()

	if _, err := s.SyncModel(ctx, "stream-1", "model-1", "commit-1", testElements()); err != nil {
		t.Fatalf("SyncModel() failed: %v", err)
	}
	if _, err := s.UpdateStatuses(ctx, []string{"G2"}, "rejected"); err != nil {
		t.Fatalf("UpdateStatuses() failed: %v", err)
	}

	var propsJSON string
	if err := s.db.QueryRow("SELECT properties FROM elements WHERE global_id = 'G2'").Scan(&propsJSON); err != nil {
		t.Fatalf("read properties: %v", err)
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(propsJSON), &props); err != nil {
		t.Fatalf("properties not valid JSON: %v", err)
	}
	if props["status_updated_at"] != at.Format(time.RFC3339) {
		t.Errorf("status_updated_at = %v, want %s", props["status_updated_at"], at.Format(time.RFC3339))
	}
	// Existing keys survive the stamp.
	if props["simple_type"] != "Door" {
		t.Errorf("simple_type = %v, want Door", props["simple_type"])
	}
}

func TestUpdateStatuses_MatchesAcrossModels(t *testing.T) {
	// The same durable id may exist in several models; a status change
	// applies to all of them.
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SyncModel(ctx, "stream-1", "model-1", "commit-1", testElements()); err != nil {
		t.Fatalf("sync model-1 failed: %v", err)
	}
	if _, err := s.SyncModel(ctx, "stream-1", "model-2", "commit-2", testElements()); err != nil {
		t.Fatalf("sync model-2 failed: %v", err)
	}

	n, err := s.UpdateStatuses(ctx, []string{"G1"}, "installed")
	if err != nil {
		t.Fatalf("UpdateStatuses() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2 (one per model)", n)
	}
}
