package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// WriteBackup serializes the items as a pretty-printed JSON array, the
// backup interchange format.
func WriteBackup(w io.Writer, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// ReadBackup parses a backup file. Any JSON array of records is
// accepted; records missing optional fields decode to zero values and
// are healed (ID, date) by Store.Import.
func ReadBackup(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}
	return items, nil
}

// BackupFilename returns the templated export filename for the given day.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("csgenius_backup_%s.json", now.Format(DateLayout))
}
