package knowledge

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestBackupRoundTrip(t *testing.T) {
	s := fixedStore(t, "2024-06-01")
	s.Import(Seed(), false)

	var buf bytes.Buffer
	if err := WriteBackup(&buf, s.Items()); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}

	restored, err := ReadBackup(&buf)
	if err != nil {
		t.Fatalf("ReadBackup: %v", err)
	}

	dst := fixedStore(t, "2024-06-01")
	dst.Import(restored, false)

	if dst.Len() != s.Len() {
		t.Fatalf("restored %d items, want %d", dst.Len(), s.Len())
	}
	for _, orig := range s.Items() {
		got, ok := dst.Get(orig.ID)
		if !ok {
			t.Errorf("item %q missing after round trip", orig.ID)
			continue
		}
		if !reflect.DeepEqual(got, orig) {
			t.Errorf("item %q changed across round trip:\n got %+v\nwant %+v", orig.ID, got, orig)
		}
	}
}

func TestWriteBackupPrettyPrinted(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBackup(&buf, Seed()); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  {") {
		t.Error("backup is not indented")
	}
}

func TestWriteBackupEmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBackup(&buf, nil); err != nil {
		t.Fatalf("WriteBackup: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty backup = %q, want []", buf.String())
	}
}

func TestReadBackupRejectsNonArray(t *testing.T) {
	if _, err := ReadBackup(strings.NewReader(`{"items": []}`)); err == nil {
		t.Error("ReadBackup accepted a non-array document")
	}
}

func TestReadBackupToleratesSparseRecords(t *testing.T) {
	raw := `[{"question": "q", "answer": "a"}]`
	items, err := ReadBackup(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadBackup: %v", err)
	}
	if len(items) != 1 || items[0].Question != "q" {
		t.Fatalf("items = %+v", items)
	}

	s := fixedStore(t, "2024-06-01")
	s.Import(items, false)
	got := s.Items()[0]
	if got.ID == "" || got.LastUpdated != "2024-06-01" {
		t.Errorf("sparse record not healed on import: %+v", got)
	}
}

func TestBackupFilename(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)
	if got := BackupFilename(now); got != "csgenius_backup_2024-06-01.json" {
		t.Errorf("BackupFilename = %q", got)
	}
}
