// Package sheetops implements the range-level operations built on a Sheets
// value-range transport: Read, Write, Query and UpdateWhere.
//
// Operations run strictly in sequence. Query writes a formula and reads its
// result back; Sheets recalculates asynchronously, so the read may observe
// stale or partial output. Callers that need the settled result should poll.
package sheetops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/steipete/gogsa/internal/googleapi"
)

type Transport interface {
	GetRange(ctx context.Context, rng string) (googleapi.RowMatrix, error)
	PutRange(ctx context.Context, rng string, m googleapi.RowMatrix, opt googleapi.ValueInputOption) error
}

type Operations struct {
	t       Transport
	limiter *rate.Limiter
}

func New(t Transport) *Operations {
	return &Operations{t: t}
}

// LimitWrites paces the per-row writes of UpdateWhere to perMinute requests
// per minute. Zero or less removes the limit.
func (o *Operations) LimitWrites(perMinute int) {
	if perMinute <= 0 {
		o.limiter = nil
		return
	}
	o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func (o *Operations) Read(ctx context.Context, rng string) (googleapi.RowMatrix, error) {
	return o.t.GetRange(ctx, rng)
}

func (o *Operations) Write(ctx context.Context, rng string, m googleapi.RowMatrix, opt googleapi.ValueInputOption) error {
	return o.t.PutRange(ctx, rng, m, opt)
}

type QueryRequest struct {
	Source          string
	PredicateColumn string
	// PredicateValue is embedded verbatim; escape it with EscapeQueryLiteral
	// when it is not trusted.
	PredicateValue string
	FormulaCell    string
	// ResultRange must be large enough to hold the formula's spill.
	ResultRange string
	Select      []string
}

// Query writes a QUERY formula to FormulaCell and reads ResultRange.
func (o *Operations) Query(ctx context.Context, req QueryRequest) (googleapi.RowMatrix, error) {
	if strings.TrimSpace(req.FormulaCell) == "" {
		return nil, fmt.Errorf("query: missing formula cell")
	}
	if strings.TrimSpace(req.ResultRange) == "" {
		return nil, fmt.Errorf("query: missing result range")
	}

	formula, err := BuildQueryFormula(req.Source, req.PredicateColumn, req.PredicateValue, req.Select)
	if err != nil {
		return nil, err
	}
	slog.Debug("writing query formula", "cell", req.FormulaCell, "formula", formula)

	if err := o.t.PutRange(ctx, req.FormulaCell, googleapi.RowMatrix{{formula}}, googleapi.InputUserEntered); err != nil {
		return nil, fmt.Errorf("write query formula: %w", err)
	}
	rows, err := o.t.GetRange(ctx, req.ResultRange)
	if err != nil {
		return nil, fmt.Errorf("read query result: %w", err)
	}
	return rows, nil
}

type UpdateRequest struct {
	Source string
	// MatchColumn and TargetColumn are 0-based offsets from Source's first
	// column.
	MatchColumn  int
	MatchValue   string
	TargetColumn int
	NewValue     string
	// OnUpdate, when set, is called after each successful write.
	OnUpdate func(CellUpdate)
}

// CellUpdate is one planned or applied UpdateWhere write.
type CellUpdate struct {
	Index int    `json:"index"`
	Row   int    `json:"row"`
	Cell  string `json:"cell"`
}

// PlanUpdates returns the writes UpdateWhere would issue for rows read
// from src, in row order. Cells missing from short rows compare as "".
func PlanUpdates(src CellRange, rows googleapi.RowMatrix, matchColumn int, matchValue string, targetColumn int) []CellUpdate {
	var out []CellUpdate
	for i, row := range rows {
		cell := ""
		if matchColumn < len(row) {
			cell = row[matchColumn]
		}
		if cell != matchValue {
			continue
		}
		abs := src.StartRow + i
		out = append(out, CellUpdate{
			Index: i,
			Row:   abs,
			Cell:  src.Cell(src.StartCol+targetColumn, abs),
		})
	}
	return out
}

// MatchUpdates reads Source and plans the writes without applying them.
func (o *Operations) MatchUpdates(ctx context.Context, req UpdateRequest) ([]CellUpdate, error) {
	src, err := ParseRange(req.Source)
	if err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	if req.MatchColumn < 0 || req.TargetColumn < 0 {
		return nil, fmt.Errorf("column offsets must not be negative")
	}

	rows, err := o.t.GetRange(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("read update source: %w", err)
	}
	return PlanUpdates(src, rows, req.MatchColumn, req.MatchValue, req.TargetColumn), nil
}

// UpdateWhere writes NewValue (RAW) into the target column of every row of
// Source whose match column equals MatchValue, one request per row in row
// order. It returns the number of rows updated. A failed write stops the run
// with a *PartialUpdateError; earlier writes stay applied.
func (o *Operations) UpdateWhere(ctx context.Context, req UpdateRequest) (int, error) {
	plan, err := o.MatchUpdates(ctx, req)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, u := range plan {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return applied, &PartialUpdateError{Applied: applied, Row: u.Row, Cell: u.Cell, Err: err}
			}
		}
		if err := o.t.PutRange(ctx, u.Cell, googleapi.RowMatrix{{req.NewValue}}, googleapi.InputRaw); err != nil {
			return applied, &PartialUpdateError{Applied: applied, Row: u.Row, Cell: u.Cell, Err: err}
		}
		applied++
		slog.Debug("updated cell", "cell", u.Cell, "row", u.Row)
		if req.OnUpdate != nil {
			req.OnUpdate(u)
		}
	}
	return applied, nil
}
