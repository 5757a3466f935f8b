package sheetops

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/steipete/gogsa/internal/googleapi"
)

type putCall struct {
	Range  string
	Values googleapi.RowMatrix
	Option googleapi.ValueInputOption
}

type memTransport struct {
	ranges  map[string]googleapi.RowMatrix
	gets    []string
	puts    []putCall
	failPut int // 1-based index of the put that fails; 0 never
	getErr  error
}

func newMemTransport() *memTransport {
	return &memTransport{ranges: map[string]googleapi.RowMatrix{}}
}

func (m *memTransport) GetRange(_ context.Context, rng string) (googleapi.RowMatrix, error) {
	m.gets = append(m.gets, rng)
	if m.getErr != nil {
		return nil, m.getErr
	}
	rows, ok := m.ranges[rng]
	if !ok {
		return googleapi.RowMatrix{}, nil
	}
	return rows, nil
}

func (m *memTransport) PutRange(_ context.Context, rng string, v googleapi.RowMatrix, opt googleapi.ValueInputOption) error {
	m.puts = append(m.puts, putCall{Range: rng, Values: v, Option: opt})
	if m.failPut != 0 && len(m.puts) == m.failPut {
		return errors.New("boom")
	}
	m.ranges[rng] = v
	return nil
}

func TestReadWrite_RawRoundTrip(t *testing.T) {
	mem := newMemTransport()
	ops := New(mem)
	ctx := context.Background()

	want := googleapi.RowMatrix{{"Test1", "Test2", "Test3"}, {"Test4", "Test5", "Test6"}}
	if err := ops.Write(ctx, "Sheet1!A1:C2", want, googleapi.InputRaw); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ops.Read(ctx, "Sheet1!A1:C2")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestRead_Empty(t *testing.T) {
	got, err := New(newMemTransport()).Read(context.Background(), "Sheet1!A1:C10")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty matrix, got %#v", got)
	}
}

func TestQuery_WritesFormulaThenReads(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["Sheet1!E:F"] = googleapi.RowMatrix{{"Test4", "Test5"}}

	got, err := New(mem).Query(context.Background(), QueryRequest{
		Source:          "A:C",
		PredicateColumn: "C",
		PredicateValue:  "Test6",
		FormulaCell:     "Sheet1!E1",
		ResultRange:     "Sheet1!E:F",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !reflect.DeepEqual(got, googleapi.RowMatrix{{"Test4", "Test5"}}) {
		t.Fatalf("unexpected rows: %#v", got)
	}

	if len(mem.puts) != 1 {
		t.Fatalf("expected one write, got %d", len(mem.puts))
	}
	put := mem.puts[0]
	if put.Range != "Sheet1!E1" || put.Option != googleapi.InputUserEntered {
		t.Fatalf("unexpected put: %#v", put)
	}
	if put.Values[0][0] != `=QUERY(A:C, "SELECT A,B WHERE C='Test6'")` {
		t.Fatalf("unexpected formula: %q", put.Values[0][0])
	}
	if !reflect.DeepEqual(mem.gets, []string{"Sheet1!E:F"}) {
		t.Fatalf("unexpected reads: %v", mem.gets)
	}
}

func TestQuery_WriteFailureSkipsRead(t *testing.T) {
	mem := newMemTransport()
	mem.failPut = 1

	_, err := New(mem).Query(context.Background(), QueryRequest{
		Source: "A:C", PredicateColumn: "C", PredicateValue: "x",
		FormulaCell: "Sheet1!E1", ResultRange: "Sheet1!E:F",
	})
	if err == nil || !strings.Contains(err.Error(), "write query formula") {
		t.Fatalf("unexpected: %v", err)
	}
	if len(mem.gets) != 0 {
		t.Fatalf("read should not run after failed write")
	}
}

func TestQuery_RequiresCells(t *testing.T) {
	ops := New(newMemTransport())
	if _, err := ops.Query(context.Background(), QueryRequest{Source: "A:C", PredicateColumn: "C", ResultRange: "E:F"}); err == nil {
		t.Fatalf("expected error for missing formula cell")
	}
	if _, err := ops.Query(context.Background(), QueryRequest{Source: "A:C", PredicateColumn: "C", FormulaCell: "E1"}); err == nil {
		t.Fatalf("expected error for missing result range")
	}
}

func TestUpdateWhere_AllMatches(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["Sheet1!A2:C"] = googleapi.RowMatrix{
		{"Test1", "x", "Test3"},
		{"a", "b", "Test3"},
	}

	var seen []CellUpdate
	n, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{
		Source:       "Sheet1!A2:C",
		MatchColumn:  2,
		MatchValue:   "Test3",
		TargetColumn: 1,
		NewValue:     "DONE",
		OnUpdate:     func(u CellUpdate) { seen = append(seen, u) },
	})
	if err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	if n != 2 {
		t.Fatalf("count: %d", n)
	}

	want := []putCall{
		{Range: "Sheet1!B2", Values: googleapi.RowMatrix{{"DONE"}}, Option: googleapi.InputRaw},
		{Range: "Sheet1!B3", Values: googleapi.RowMatrix{{"DONE"}}, Option: googleapi.InputRaw},
	}
	if !reflect.DeepEqual(mem.puts, want) {
		t.Fatalf("unexpected puts: %#v", mem.puts)
	}
	if len(seen) != 2 || seen[0].Row != 2 || seen[1].Row != 3 {
		t.Fatalf("unexpected callbacks: %#v", seen)
	}
}

func TestUpdateWhere_WholeColumnsStartAtRowOne(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["Sheet1!A:C"] = googleapi.RowMatrix{
		{"h1", "h2", "h3"},
		{"Test1", "", "Test3"},
	}

	n, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{
		Source: "Sheet1!A:C", MatchColumn: 2, MatchValue: "Test3", TargetColumn: 1, NewValue: "UPDATED_VALUE",
	})
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if mem.puts[0].Range != "Sheet1!B2" {
		t.Fatalf("unexpected cell: %s", mem.puts[0].Range)
	}
}

func TestUpdateWhere_NoMatches(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["Sheet1!A1:C2"] = googleapi.RowMatrix{{"a", "b", "c"}, {"d"}}

	n, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{
		Source: "Sheet1!A1:C2", MatchColumn: 2, MatchValue: "Test3", TargetColumn: 1, NewValue: "DONE",
	})
	if err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	if n != 0 || len(mem.puts) != 0 {
		t.Fatalf("expected no writes, n=%d puts=%v", n, mem.puts)
	}
}

func TestUpdateWhere_CaseSensitive(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["A1:B1"] = googleapi.RowMatrix{{"test3", ""}}

	n, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{
		Source: "A1:B1", MatchColumn: 0, MatchValue: "Test3", TargetColumn: 1, NewValue: "x",
	})
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestUpdateWhere_PartialFailure(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["Sheet1!A1:C"] = googleapi.RowMatrix{
		{"k", "", "m"},
		{"k", "", "m"},
		{"k", "", "m"},
	}
	mem.failPut = 2

	n, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{
		Source: "Sheet1!A1:C", MatchColumn: 0, MatchValue: "k", TargetColumn: 2, NewValue: "done",
	})
	var partial *PartialUpdateError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialUpdateError, got %v", err)
	}
	if n != 1 || partial.Applied != 1 || partial.Row != 2 || partial.Cell != "Sheet1!C2" {
		t.Fatalf("n=%d partial=%#v", n, partial)
	}
	if len(mem.puts) != 2 {
		t.Fatalf("expected the run to stop at the failed write, puts=%d", len(mem.puts))
	}
}

func TestUpdateWhere_ReadFailure(t *testing.T) {
	mem := newMemTransport()
	mem.getErr = errors.New("offline")

	_, err := New(mem).UpdateWhere(context.Background(), UpdateRequest{Source: "A:C", MatchColumn: 0, MatchValue: "x"})
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("unexpected: %v", err)
	}
	var partial *PartialUpdateError
	if errors.As(err, &partial) {
		t.Fatalf("read failure is not a partial update")
	}
}

func TestUpdateWhere_InvalidRequest(t *testing.T) {
	ops := New(newMemTransport())
	if _, err := ops.UpdateWhere(context.Background(), UpdateRequest{Source: "not a range"}); err == nil {
		t.Fatalf("expected error for bad range")
	}
	if _, err := ops.UpdateWhere(context.Background(), UpdateRequest{Source: "A:C", MatchColumn: -1}); err == nil {
		t.Fatalf("expected error for negative offset")
	}
}

func TestMatchUpdates_DoesNotWrite(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["'My Sheet'!B5:D"] = googleapi.RowMatrix{{"x", "y", "z"}, {"x"}}

	plan, err := New(mem).MatchUpdates(context.Background(), UpdateRequest{
		Source: "'My Sheet'!B5:D", MatchColumn: 0, MatchValue: "x", TargetColumn: 2,
	})
	if err != nil {
		t.Fatalf("MatchUpdates: %v", err)
	}
	want := []CellUpdate{
		{Index: 0, Row: 5, Cell: "'My Sheet'!D5"},
		{Index: 1, Row: 6, Cell: "'My Sheet'!D6"},
	}
	if !reflect.DeepEqual(plan, want) {
		t.Fatalf("unexpected plan: %#v", plan)
	}
	if len(mem.puts) != 0 {
		t.Fatalf("expected no writes")
	}
}

func TestUpdateWhere_WriteLimitStopsAtDeadline(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["A1:B"] = googleapi.RowMatrix{{"hit"}, {"hit"}, {"hit"}}

	ops := New(mem)
	ops.LimitWrites(1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	n, err := ops.UpdateWhere(ctx, UpdateRequest{Source: "A1:B", MatchColumn: 0, MatchValue: "hit", TargetColumn: 1, NewValue: "v"})
	var partial *PartialUpdateError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialUpdateError, got %v", err)
	}
	if n != 1 || partial.Applied != 1 || partial.Cell != "B2" {
		t.Fatalf("n=%d partial=%#v", n, partial)
	}
	if len(mem.puts) != 1 {
		t.Fatalf("puts=%d", len(mem.puts))
	}
}

func TestLimitWrites_ZeroRemovesLimit(t *testing.T) {
	mem := newMemTransport()
	mem.ranges["A1:B"] = googleapi.RowMatrix{{"hit"}, {"hit"}}

	ops := New(mem)
	ops.LimitWrites(1)
	ops.LimitWrites(0)

	n, err := ops.UpdateWhere(context.Background(), UpdateRequest{Source: "A1:B", MatchColumn: 0, MatchValue: "hit", TargetColumn: 1, NewValue: "v"})
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
