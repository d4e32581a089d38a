package ingest

import (
	"encoding/base64"
	"strings"
	"testing"
)

// pngHeader is enough for content-type sniffing.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"backup.json", KindBackup},
		{"doc.PDF", KindPDF},
		{"sheet.csv", KindCSV},
		{"shot.png", KindImage},
		{"shot.JPEG", KindImage},
		{"notes.txt", KindText},
		{"README.md", KindText},
	}
	for _, tt := range tests {
		if got := Detect(tt.name); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPrepareImage(t *testing.T) {
	att, err := Prepare("shot.png", pngHeader)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if att.Text != "" {
		t.Errorf("Text = %q, want empty for images", att.Text)
	}
	if att.ImageMIME != "image/png" {
		t.Errorf("ImageMIME = %q, want image/png", att.ImageMIME)
	}
	decoded, err := base64.StdEncoding.DecodeString(att.ImageData)
	if err != nil || len(decoded) != len(pngHeader) {
		t.Errorf("ImageData does not round-trip: %v", err)
	}
}

func TestPrepareCSV(t *testing.T) {
	csvData := "question,answer\n退款,14天内\n崩溃,重装"
	att, err := Prepare("faq.csv", []byte(csvData))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, want := range []string{"faq.csv", `"question": "退款"`, `"answer": "重装"`} {
		if !strings.Contains(att.Text, want) {
			t.Errorf("text block missing %q:\n%s", want, att.Text)
		}
	}
}

func TestPreparePlainText(t *testing.T) {
	att, err := Prepare("notes.txt", []byte("raw notes"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if att.Text != "raw notes" {
		t.Errorf("Text = %q", att.Text)
	}
}

func TestPrepareRejectsBackup(t *testing.T) {
	if _, err := Prepare("backup.json", []byte("[]")); err == nil {
		t.Error("expected backup files to be rejected from extraction preprocessing")
	}
}

func TestPrepareRejectsOversize(t *testing.T) {
	if _, err := Prepare("big.txt", make([]byte, maxFileSize+1)); err == nil {
		t.Error("expected oversize file to be rejected")
	}
}

func TestPrepareInvalidPDF(t *testing.T) {
	if _, err := Prepare("bad.pdf", []byte("not a pdf")); err == nil {
		t.Error("expected error for invalid PDF data")
	}
}

func TestPrepareAllPreservesOrder(t *testing.T) {
	files := map[string][]byte{
		"a.txt": []byte("first"),
		"b.txt": []byte("second"),
		"c.txt": []byte("third"),
	}
	atts, err := PrepareAll(files, []string{"a.txt", "b.txt", "c.txt"})
	if err != nil {
		t.Fatalf("PrepareAll: %v", err)
	}
	if len(atts) != 3 || atts[0].Text != "first" || atts[2].Text != "third" {
		t.Errorf("atts = %+v", atts)
	}
}

func TestPrepareAllFailsBatchOnError(t *testing.T) {
	files := map[string][]byte{
		"a.txt":       []byte("fine"),
		"backup.json": []byte("[]"),
	}
	if _, err := PrepareAll(files, []string{"a.txt", "backup.json"}); err == nil {
		t.Error("expected batch failure")
	}
}

func TestPrepareAllEmpty(t *testing.T) {
	atts, err := PrepareAll(nil, nil)
	if err != nil || atts != nil {
		t.Errorf("PrepareAll(nil) = %v, %v", atts, err)
	}
}
