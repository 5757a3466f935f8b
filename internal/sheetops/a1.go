package sheetops

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CellRange is a rectangular A1 region. Columns and rows are 1-based.
// EndRow is 0 when the range is open downwards (A:C, A2:C).
type CellRange struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ZZZ is the widest column Sheets addresses.
const maxColumnLetters = 3

var a1RefRe = regexp.MustCompile(`^([A-Za-z]+)([0-9]*)$`)

// ParseRange accepts Sheet1!A1:C10, 'My Sheet'!A2:C, A:C and single cells.
func ParseRange(a1 string) (CellRange, error) {
	raw := strings.TrimSpace(a1)
	if raw == "" {
		return CellRange{}, fmt.Errorf("empty A1 range")
	}

	sheetName, rangePart, err := splitA1Sheet(raw)
	if err != nil {
		return CellRange{}, err
	}
	if strings.TrimSpace(rangePart) == "" {
		return CellRange{}, fmt.Errorf("missing range in %q", raw)
	}

	rangePart = strings.ReplaceAll(rangePart, "$", "")
	parts := strings.Split(rangePart, ":")
	if len(parts) > 2 {
		return CellRange{}, fmt.Errorf("invalid A1 range %q", raw)
	}

	startRef := strings.TrimSpace(parts[0])
	endRef := startRef
	if len(parts) == 2 {
		endRef = strings.TrimSpace(parts[1])
	}

	startCol, startRow, err := parseA1Ref(startRef)
	if err != nil {
		return CellRange{}, err
	}
	endCol, endRow, err := parseA1Ref(endRef)
	if err != nil {
		return CellRange{}, err
	}

	if startRow == 0 {
		startRow = 1
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}
	if endRow != 0 && endRow < startRow {
		startRow, endRow = endRow, startRow
	}

	return CellRange{
		Sheet:    sheetName,
		StartCol: startCol,
		StartRow: startRow,
		EndCol:   endCol,
		EndRow:   endRow,
	}, nil
}

// String formats r back to A1 notation, quoting the sheet name when needed.
func (r CellRange) String() string {
	start := ColumnName(r.StartCol) + strconv.Itoa(r.StartRow)
	end := ColumnName(r.EndCol)
	if r.EndRow != 0 {
		end += strconv.Itoa(r.EndRow)
	}

	var body string
	if start == end {
		body = start
	} else {
		body = start + ":" + end
	}
	return qualify(r.Sheet, body)
}

// Cell returns the A1 address of one cell on r's sheet.
func (r CellRange) Cell(col, row int) string {
	return qualify(r.Sheet, ColumnName(col)+strconv.Itoa(row))
}

// Columns lists the column letters spanned by r.
func (r CellRange) Columns() []string {
	out := make([]string, 0, r.EndCol-r.StartCol+1)
	for c := r.StartCol; c <= r.EndCol; c++ {
		out = append(out, ColumnName(c))
	}
	return out
}

func qualify(sheet, body string) string {
	if sheet == "" {
		return body
	}
	return quoteSheetName(sheet) + "!" + body
}

var plainSheetNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteSheetName(name string) string {
	if plainSheetNameRe.MatchString(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func splitA1Sheet(a1 string) (string, string, error) {
	idx := strings.LastIndex(a1, "!")
	if idx == -1 {
		return "", a1, nil
	}

	sheetPart := strings.TrimSpace(a1[:idx])
	rangePart := strings.TrimSpace(a1[idx+1:])
	if sheetPart == "" || rangePart == "" {
		return "", "", fmt.Errorf("invalid A1 range %q", a1)
	}

	sheetName, err := unquoteSheetName(sheetPart)
	if err != nil {
		return "", "", err
	}
	return sheetName, rangePart, nil
}

func unquoteSheetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty sheet name")
	}
	if strings.HasPrefix(name, "'") {
		if !strings.HasSuffix(name, "'") || len(name) < 2 {
			return "", fmt.Errorf("invalid sheet name %q", name)
		}
		inner := name[1 : len(name)-1]
		return strings.ReplaceAll(inner, "''", "'"), nil
	}
	return name, nil
}

// parseA1Ref parses "B3" or a bare column "B"; row is 0 for the latter.
func parseA1Ref(ref string) (int, int, error) {
	matches := a1RefRe.FindStringSubmatch(ref)
	if matches == nil {
		return 0, 0, fmt.Errorf("invalid A1 reference %q", ref)
	}

	col, err := ColumnIndex(matches[1])
	if err != nil {
		return 0, 0, err
	}
	if matches[2] == "" {
		return col, 0, nil
	}
	row, err := strconv.Atoi(matches[2])
	if err != nil || row <= 0 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col, row, nil
}

// ColumnIndex converts column letters to a 1-based index (A=1, AA=27).
func ColumnIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}
	if len(letters) > maxColumnLetters {
		return 0, fmt.Errorf("invalid column %q", letters)
	}

	col := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col, nil
}

// ColumnName is the inverse of ColumnIndex.
func ColumnName(col int) string {
	if col <= 0 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
