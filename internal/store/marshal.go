package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayout is how started_at is stored. Only display uses it; ordering is
// by seq.
const timeLayout = time.RFC3339Nano

// marshalFiles converts the file list to JSON TEXT. A nil list stores "[]".
func marshalFiles(files []string) (string, error) {
	if files == nil {
		files = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(files); err != nil {
		return "", fmt.Errorf("marshal files: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalFiles parses JSON TEXT back into a file list.
func unmarshalFiles(data string) ([]string, error) {
	var files []string
	if err := json.Unmarshal([]byte(data), &files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	return files, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at: %w", err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
