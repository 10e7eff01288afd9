// Package conditions reads the header of conditions files so that their
// column names can be registered as experiment variables.
package conditions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/psyexpgo/internal/pyexpr"
)

// ErrUnsupportedFormat is returned for conditions files that can only be
// read by the experiment runtime, such as spreadsheets and pickles.
var ErrUnsupportedFormat = errors.New("unsupported conditions file format")

// ImportFields returns the column names of a .csv or .tsv conditions file.
func ImportFields(path string) ([]string, error) {
	var comma rune
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		comma = ','
	case ".tsv":
		comma = '\t'
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conditions file: %w", err)
	}
	defer f.Close()

	return readFields(f, comma)
}

func readFields(r io.Reader, comma rune) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("conditions file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conditions header: %w", err)
	}

	fields := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			// trailing empty columns are common in spreadsheet exports
			continue
		}
		if !pyexpr.IsValidVariable(name) {
			return nil, fmt.Errorf("column %d: %q is not a valid variable name", i+1, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("column %d: duplicate name %q", i+1, name)
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields, nil
}
