package sheet

import (
	"fmt"
	"strings"
)

// A1Range is a parsed A1 reference. Rows and columns are 1-based and
// inclusive; zero means the bound is open, as in "C:C" (every row of C),
// "2:2" (every column of row 2) or "A2:C" (rows 2 to the end, A to C).
type A1Range struct {
	SheetName        string
	StartRow, EndRow int
	StartCol, EndCol int
}

// a1Ref is one side of a range: a column, a row, or both.
type a1Ref struct {
	col, row int
}

func (r a1Ref) cell() bool { return r.col > 0 && r.row > 0 }

func ParseA1Range(a1 string) (A1Range, error) {
	raw := strings.TrimSpace(a1)
	if raw == "" {
		return A1Range{}, fmt.Errorf("empty A1 range")
	}

	sheetName, body, err := splitSheet(raw)
	if err != nil {
		return A1Range{}, err
	}
	body = strings.ReplaceAll(body, "$", "")
	if body == "" {
		return A1Range{}, fmt.Errorf("missing range in %q", raw)
	}

	lo, hi, isRange := strings.Cut(body, ":")
	if strings.Contains(hi, ":") {
		return A1Range{}, fmt.Errorf("invalid A1 range %q", raw)
	}
	start, err := parseRef(lo)
	if err != nil {
		return A1Range{}, err
	}
	if !isRange {
		if !start.cell() {
			return A1Range{}, fmt.Errorf("single reference %q must name a cell", lo)
		}
		return A1Range{SheetName: sheetName, StartRow: start.row, EndRow: start.row, StartCol: start.col, EndCol: start.col}, nil
	}
	end, err := parseRef(hi)
	if err != nil {
		return A1Range{}, err
	}

	// "A:2" names neither a column span nor a row span.
	if (start.col == 0 && end.row == 0) || (start.row == 0 && end.col == 0) {
		return A1Range{}, fmt.Errorf("invalid A1 range %q", raw)
	}

	r := A1Range{
		SheetName: sheetName,
		StartCol:  start.col,
		EndCol:    end.col,
		StartRow:  start.row,
		EndRow:    end.row,
	}
	if r.StartCol > 0 && r.EndCol > 0 && r.EndCol < r.StartCol {
		r.StartCol, r.EndCol = r.EndCol, r.StartCol
	}
	if r.StartRow > 0 && r.EndRow > 0 && r.EndRow < r.StartRow {
		r.StartRow, r.EndRow = r.EndRow, r.StartRow
	}
	return r, nil
}

func splitSheet(a1 string) (string, string, error) {
	idx := strings.LastIndex(a1, "!")
	if idx < 0 {
		return "", a1, nil
	}
	name := strings.TrimSpace(a1[:idx])
	body := strings.TrimSpace(a1[idx+1:])
	if name == "" || body == "" {
		return "", "", fmt.Errorf("invalid A1 range %q", a1)
	}
	if !strings.HasPrefix(name, "'") {
		return name, body, nil
	}
	if len(name) < 2 || !strings.HasSuffix(name, "'") {
		return "", "", fmt.Errorf("invalid sheet name %q", name)
	}
	return strings.ReplaceAll(name[1:len(name)-1], "''", "'"), body, nil
}

// parseRef reads letters then digits; either part may be missing but not both.
func parseRef(s string) (a1Ref, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var ref a1Ref
	i := 0
	for ; i < len(s) && s[i] >= 'A' && s[i] <= 'Z'; i++ {
		ref.col = ref.col*26 + int(s[i]-'A'+1)
	}
	digits := s[i:]
	if digits != "" {
		for j := 0; j < len(digits); j++ {
			if digits[j] < '0' || digits[j] > '9' {
				return a1Ref{}, fmt.Errorf("invalid A1 reference %q", s)
			}
			ref.row = ref.row*10 + int(digits[j]-'0')
		}
		if ref.row == 0 {
			return a1Ref{}, fmt.Errorf("invalid row in %q", s)
		}
	}
	if ref.col == 0 && ref.row == 0 {
		return a1Ref{}, fmt.Errorf("invalid A1 reference %q", s)
	}
	return ref, nil
}
