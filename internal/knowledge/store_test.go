package knowledge

import (
	"testing"
	"time"
)

// fixedStore returns a Store whose clock is pinned to the given date.
func fixedStore(t *testing.T, date string) *Store {
	t.Helper()
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	s := NewStore()
	s.now = func() time.Time { return d }
	return s
}

func TestAddAssignsIDsAndDate(t *testing.T) {
	s := fixedStore(t, "2024-06-01")

	created := s.Add([]Item{
		{Question: "Q1", Answer: "A1", App: "通用", Category: "c", Frequency: FrequencyMedium},
		{Question: "Q2", Answer: "A2", App: "辞书", Category: "c", Frequency: FrequencyLow},
	})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	seen := make(map[string]bool)
	for _, it := range created {
		if it.ID == "" {
			t.Errorf("item %q has empty ID", it.Question)
		}
		if seen[it.ID] {
			t.Errorf("duplicate ID %q", it.ID)
		}
		seen[it.ID] = true
		if it.LastUpdated != "2024-06-01" {
			t.Errorf("LastUpdated = %q, want 2024-06-01", it.LastUpdated)
		}
	}
}

func TestAddPrependsNewestFirst(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{{Question: "old", Answer: "a"}})
	s.Add([]Item{{Question: "new1", Answer: "a"}, {Question: "new2", Answer: "a"}})

	items := s.Items()
	got := []string{items[0].Question, items[1].Question, items[2].Question}
	want := []string{"new1", "new2", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d].Question = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddEmptyBatchIsNoop(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{{Question: "q", Answer: "a"}})

	if got := s.Add(nil); got != nil {
		t.Errorf("Add(nil) = %v, want nil", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestUpdateOptimizedAnswer(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	created := s.Add([]Item{{Question: "q", Answer: "a", OptimizedAnswer: "before"}})

	s.now = func() time.Time { return time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) }
	if !s.UpdateOptimizedAnswer(created[0].ID, "after") {
		t.Fatal("UpdateOptimizedAnswer returned false for existing ID")
	}

	got, ok := s.Get(created[0].ID)
	if !ok {
		t.Fatal("item vanished after update")
	}
	if got.OptimizedAnswer != "after" {
		t.Errorf("OptimizedAnswer = %q, want %q", got.OptimizedAnswer, "after")
	}
	// An edit counts as an update for the recent-items view.
	if got.LastUpdated != "2024-06-10" {
		t.Errorf("LastUpdated = %q, want refreshed 2024-06-10", got.LastUpdated)
	}
	if got.Question != "q" || got.Answer != "a" {
		t.Errorf("unrelated fields changed: %+v", got)
	}
}

func TestUpdateMissingIDIsNoop(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{{Question: "q", Answer: "a"}})

	if s.UpdateOptimizedAnswer("nope", "x") {
		t.Error("UpdateOptimizedAnswer returned true for missing ID")
	}
}

func TestRemove(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	created := s.Add([]Item{
		{Question: "q1", Answer: "a"},
		{Question: "q2", Answer: "a"},
		{Question: "q3", Answer: "a"},
	})

	if !s.Remove(created[1].ID) {
		t.Fatal("Remove returned false for existing ID")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.Get(created[1].ID); ok {
		t.Error("removed item still present")
	}
}

func TestRemoveMissingIDIsNoop(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{
		{Question: "q1", Answer: "a"},
		{Question: "q2", Answer: "a"},
		{Question: "q3", Answer: "a"},
	})

	if s.Remove("absent") {
		t.Error("Remove returned true for missing ID")
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3 after no-op delete", s.Len())
	}
}

func TestImportAdditiveByDefault(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{{Question: "existing", Answer: "a"}})

	n := s.Import([]Item{
		{ID: "r1", Question: "restored", Answer: "a", LastUpdated: "2023-01-01"},
		{Question: "no-id", Answer: "a"},
	}, false)

	if n != 2 {
		t.Errorf("Import returned %d, want 2", n)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (restore must not drop existing entries)", s.Len())
	}

	// Provided IDs and dates are preserved; missing ones are assigned.
	if got, ok := s.Get("r1"); !ok || got.LastUpdated != "2023-01-01" {
		t.Errorf("restored item r1 = %+v, ok=%v", got, ok)
	}
	items := s.Items()
	if items[1].ID == "" || items[1].LastUpdated != "2024-06-01" {
		t.Errorf("ID/date not assigned to record lacking them: %+v", items[1])
	}
}

func TestImportReplaceMode(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Add([]Item{{Question: "existing", Answer: "a"}})

	s.Import([]Item{{ID: "r1", Question: "restored", Answer: "a", LastUpdated: "2023-01-01"}}, true)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after replace", s.Len())
	}
	if _, ok := s.Get("r1"); !ok {
		t.Error("replacement item missing")
	}
}

func TestNormalizeApp(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"辞书", "辞书"},
		{"Test", "Test"},
		{"通用", "通用"},
		{"", "通用"},
		{"SomethingElse", "通用"},
	}
	for _, tt := range tests {
		if got := NormalizeApp(tt.in); got != tt.want {
			t.Errorf("NormalizeApp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
