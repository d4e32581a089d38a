// Package ingest converts uploaded files into extraction inputs: images
// become inline attachments, documents become appended context text.
// These are pre-processing steps feeding the extraction contract, not
// part of the contract itself.
package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// File kinds recognized by Detect.
const (
	KindImage  = "image"
	KindPDF    = "pdf"
	KindCSV    = "csv"
	KindText   = "text"
	KindBackup = "backup"
)

// maxFileSize bounds a single uploaded file.
const maxFileSize = 10 << 20 // 10MB

// Attachment is the prepared extraction input derived from one file.
// Exactly one of Text and ImageData is set.
type Attachment struct {
	Text      string `json:"text,omitempty"`
	ImageData string `json:"imageData,omitempty"` // base64
	ImageMIME string `json:"imageMime,omitempty"`
}

// Detect classifies a filename by extension. JSON files are knowledge
// backups and must be routed to the restore path, never to extraction.
func Detect(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return KindBackup
	case ".pdf":
		return KindPDF
	case ".csv":
		return KindCSV
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return KindImage
	default:
		return KindText
	}
}

// Prepare converts one uploaded file into an extraction input. Backup
// files are rejected here; callers route them via Detect first.
func Prepare(filename string, data []byte) (Attachment, error) {
	if len(data) > maxFileSize {
		return Attachment{}, fmt.Errorf("file %s exceeds %d bytes", filename, maxFileSize)
	}

	switch Detect(filename) {
	case KindBackup:
		return Attachment{}, fmt.Errorf("file %s is a knowledge backup, not extraction input", filename)
	case KindImage:
		return Attachment{
			ImageData: base64.StdEncoding.EncodeToString(data),
			ImageMIME: http.DetectContentType(data),
		}, nil
	case KindPDF:
		text, err := pdfText(data)
		if err != nil {
			return Attachment{}, fmt.Errorf("parsing PDF %s: %w", filename, err)
		}
		return Attachment{Text: fmt.Sprintf("[已导入 PDF 文档 - %s]:\n%s", filepath.Base(filename), text)}, nil
	case KindCSV:
		text, err := csvToJSON(data)
		if err != nil {
			return Attachment{}, fmt.Errorf("parsing spreadsheet %s: %w", filename, err)
		}
		return Attachment{Text: fmt.Sprintf("[已导入表格文档 - %s]:\n%s", filepath.Base(filename), text)}, nil
	default:
		return Attachment{Text: string(data)}, nil
	}
}

// PrepareAll converts multiple files concurrently, preserving input
// order in the result. Any single failure fails the whole batch.
func PrepareAll(files map[string][]byte, order []string) ([]Attachment, error) {
	if len(order) == 0 {
		return nil, nil
	}

	results := make([]Attachment, len(order))
	var g errgroup.Group
	g.SetLimit(4)

	for i, name := range order {
		g.Go(func() error {
			att, err := Prepare(name, files[name])
			if err != nil {
				return err
			}
			results[i] = att
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// csvToJSON renders the sheet as a pretty-printed JSON array of row
// objects keyed by the header row, the same text block shape the
// extraction prompt receives for spreadsheets.
func csvToJSON(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "[]", nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
