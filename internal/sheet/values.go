package sheet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseValues decodes a JSON array of rows, e.g. [["a",1],["b",2]].
func ParseValues(raw string) ([][]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty values")
	}
	var rows [][]any
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("values must be a JSON array of rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in values")
	}
	return rows, nil
}

// ParseDelimited turns "a,b;c,d" style input into rows. Rows split on ';',
// cells on ','.
func ParseDelimited(raw string) [][]any {
	var rows [][]any
	for _, line := range strings.Split(raw, ";") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		row := make([]any, len(parts))
		for i, p := range parts {
			row[i] = strings.TrimSpace(p)
		}
		rows = append(rows, row)
	}
	return rows
}
