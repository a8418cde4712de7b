// Package export serializes record rows to CSV, JSON, and XLSX and delivers
// the result as an HTTP attachment or a file.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Field is one named value of a Row.
type Field struct {
	Key   string
	Value any
}

// Row is a flat record with ordered keys.
type Row []Field

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the row's keys in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON encodes the row as an object with keys in row order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Rows converts items with conv.
func Rows[T any](items []T, conv func(T) Row) []Row {
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = conv(it)
	}
	return rows
}

// ToCSV renders rows as CSV. The header is the first row's keys joined by
// commas; every data field is quoted with inner quotes doubled. Rows are
// joined by "\n" with no trailing newline. No rows yields "".
func ToCSV(rows []Row) string {
	if len(rows) == 0 {
		return ""
	}
	headers := rows[0].Keys()
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(headers, ","))
	fields := make([]string, len(headers))
	for _, r := range rows {
		for i, h := range headers {
			v, _ := r.Get(h)
			fields[i] = `"` + strings.ReplaceAll(stringify(v), `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ",")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// ToJSON renders v as JSON indented by two spaces.
func ToJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return string(data), nil
}

// Download sends content as an attachment named filename.
func Download(w http.ResponseWriter, content []byte, filename, mimeType string) error {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(content)
	return err
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
