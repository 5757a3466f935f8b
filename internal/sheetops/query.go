package sheetops

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnquotableLiteral = errors.New("query literal cannot contain a single quote")

// BuildQueryFormula returns
//
//	=QUERY(<source>, "SELECT <cols> WHERE <column>='<value>'")
//
// value is embedded as-is; see EscapeQueryLiteral. When selectCols is empty
// the source's columns other than the predicate column are selected, or *
// when the source cannot be parsed as an A1 range.
func BuildQueryFormula(source, predicateColumn, value string, selectCols []string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("empty query source")
	}
	col := strings.ToUpper(strings.TrimSpace(predicateColumn))
	if _, err := ColumnIndex(col); err != nil {
		return "", fmt.Errorf("predicate column: %w", err)
	}

	cols := make([]string, 0, len(selectCols))
	for _, c := range selectCols {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		cols = defaultSelect(source, col)
	}

	return fmt.Sprintf("=QUERY(%s, \"SELECT %s WHERE %s='%s'\")", source, strings.Join(cols, ","), col, value), nil
}

func defaultSelect(source, predicateColumn string) []string {
	r, err := ParseRange(source)
	if err != nil {
		return []string{"*"}
	}
	var out []string
	for _, c := range r.Columns() {
		if c != predicateColumn {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// EscapeQueryLiteral prepares value for the single-quoted literal inside
// the formula's string argument: double quotes are doubled for the formula
// parser. The query language has no escape for the literal's own quote, so
// a value containing ' is rejected.
func EscapeQueryLiteral(value string) (string, error) {
	if strings.Contains(value, "'") {
		return "", ErrUnquotableLiteral
	}
	return strings.ReplaceAll(value, `"`, `""`), nil
}
