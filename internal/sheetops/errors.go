package sheetops

import "fmt"

// PartialUpdateError is returned when an UpdateWhere write fails after
// Applied earlier writes already succeeded. Those writes are not undone.
type PartialUpdateError struct {
	Applied int
	Row     int
	Cell    string
	Err     error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("update %s (row %d) failed after %d successful update(s): %v", e.Cell, e.Row, e.Applied, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }
