package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steipete/gogsa/internal/googleapi"
	"github.com/steipete/gogsa/internal/outfmt"
	"github.com/steipete/gogsa/internal/sheetops"
	"github.com/steipete/gogsa/internal/ui"
)

var stdin io.Reader = os.Stdin

func newReadCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "read <range>",
		Short: "Read values from a range",
		Long:  "Read values from a range of the spreadsheet.\nExample: gogsa read 'Sheet1!A1:C10'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, flags)
			defer cancel()

			rangeSpec := strings.TrimSpace(args[0])
			if rangeSpec == "" {
				return newUsageError(errors.New("empty range"))
			}

			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			rows, err := s.Ops.Read(ctx, rangeSpec)
			if err != nil {
				return err
			}
			return printRows(cmd.Context(), rangeSpec, rows, "No data found")
		},
	}
}

func newWriteCmd(flags *rootFlags) *cobra.Command {
	var valuesJSON string
	var tsvPath string
	var input string

	cmd := &cobra.Command{
		Use:   "write <range>",
		Short: "Write values to a range",
		Long: strings.TrimSpace(`
Write values to a range of the spreadsheet, overwriting what is there.

Values come from --values (a JSON array of rows) or --tsv (a TSV file, '-' for stdin).
--input raw stores strings verbatim; --input user-entered parses them like typed input,
so '=SUM(A1:A3)' becomes a formula.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, flags)
			defer cancel()
			u := ui.FromContext(cmd.Context())

			opt, err := googleapi.ParseValueInputOption(input)
			if err != nil {
				return newUsageError(err)
			}
			rows, err := readValues(valuesJSON, tsvPath)
			if err != nil {
				return newUsageError(err)
			}

			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			if err := s.Ops.Write(ctx, args[0], rows, opt); err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"range":            args[0],
					"rows":             len(rows),
					"valueInputOption": opt,
				})
			}
			u.Out().Successf("Wrote %d row(s) to %s", len(rows), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&valuesJSON, "values", "", `Rows as JSON, e.g. '[["a","b"],["c","d"]]'`)
	cmd.Flags().StringVar(&tsvPath, "tsv", "", "Read rows from a TSV file ('-' for stdin)")
	cmd.Flags().StringVar(&input, "input", "raw", "Value input option: raw|user-entered")
	return cmd
}

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var formulaCell string
	var resultRange string
	var selectCols string
	var rawPredicate bool
	var poll int
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "query <source> <predicateColumn> <value>",
		Short: "Filter rows with a QUERY formula and read the result",
		Long: strings.TrimSpace(`
Write =QUERY(<source>, "SELECT ... WHERE <predicateColumn>='<value>'") into --formula-cell
with USER_ENTERED, then read --result back.

Sheets recalculates asynchronously, so an immediate read can miss rows. --poll N re-reads
the result up to N more times while it is empty.`),
		Example: "  gogsa query A:C C Test6 --formula-cell 'Sheet1!E1' --result 'Sheet1!E:F'",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, flags)
			defer cancel()

			value := args[2]
			if !rawPredicate {
				escaped, err := sheetops.EscapeQueryLiteral(value)
				if err != nil {
					return newUsageError(fmt.Errorf("%w (pass --raw-predicate to embed it anyway)", err))
				}
				value = escaped
			}
			if poll < 0 {
				return newUsageError(errors.New("--poll must not be negative"))
			}

			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}

			req := sheetops.QueryRequest{
				Source:          args[0],
				PredicateColumn: args[1],
				PredicateValue:  value,
				FormulaCell:     formulaCell,
				ResultRange:     resultRange,
				Select:          splitList(selectCols),
			}
			rows, err := s.Ops.Query(ctx, req)
			if err != nil {
				return err
			}
			for i := 0; i < poll && len(rows) == 0; i++ {
				if err := sleepCtx(ctx, pollInterval); err != nil {
					return err
				}
				if rows, err = s.Ops.Read(ctx, resultRange); err != nil {
					return err
				}
			}

			return printRows(cmd.Context(), resultRange, rows, "No matching rows found")
		},
	}

	cmd.Flags().StringVar(&formulaCell, "formula-cell", "Sheet1!E1", "Cell that receives the QUERY formula")
	cmd.Flags().StringVar(&resultRange, "result", "Sheet1!E:F", "Range to read the evaluated result from (must fit the spill)")
	cmd.Flags().StringVar(&selectCols, "select", "", "Columns to select, e.g. A,B (default: source columns except the predicate column)")
	cmd.Flags().BoolVar(&rawPredicate, "raw-predicate", false, "Embed the value without escaping")
	cmd.Flags().IntVar(&poll, "poll", 0, "Re-read an empty result up to N times")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "Delay between result re-reads")
	return cmd
}

func newUpdateWhereCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool
	var writesPerMinute int

	cmd := &cobra.Command{
		Use:   "update-where <source> <matchOffset> <matchValue> <targetOffset> <newValue>",
		Short: "Set a column on every row whose match column equals a value",
		Long: strings.TrimSpace(`
Read <source>, and for every row whose cell at <matchOffset> equals <matchValue>
(exact, case-sensitive) write <newValue> (RAW) to the cell at <targetOffset>.
Offsets count from the source's first column, starting at 0.

Each row is a separate write. If one fails, rows already written stay written and
the error reports how many were applied.`),
		Example: "  gogsa update-where 'Sheet1!A2:C' 2 Test3 1 DONE",
		Args:    cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, flags)
			defer cancel()
			u := ui.FromContext(cmd.Context())

			matchCol, err := parseOffset("matchOffset", args[1])
			if err != nil {
				return err
			}
			targetCol, err := parseOffset("targetOffset", args[3])
			if err != nil {
				return err
			}

			if writesPerMinute < 0 {
				return newUsageError(errors.New("--writes-per-minute must not be negative"))
			}

			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			s.Ops.LimitWrites(writesPerMinute)

			var cells []sheetops.CellUpdate
			req := sheetops.UpdateRequest{
				Source:       args[0],
				MatchColumn:  matchCol,
				MatchValue:   args[2],
				TargetColumn: targetCol,
				NewValue:     args[4],
				OnUpdate: func(c sheetops.CellUpdate) {
					cells = append(cells, c)
					if !outfmt.IsJSON(cmd.Context()) {
						u.Err().Printf("Updated %s (row %d)", c.Cell, c.Row)
					}
				},
			}

			var n int
			if dryRun {
				if cells, err = s.Ops.MatchUpdates(ctx, req); err != nil {
					return err
				}
			} else if n, err = s.Ops.UpdateWhere(ctx, req); err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				if cells == nil {
					cells = []sheetops.CellUpdate{}
				}
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"updated": n,
					"dryRun":  dryRun,
					"cells":   cells,
				})
			}
			if dryRun {
				for _, c := range cells {
					u.Out().Printf("%s\trow %d", c.Cell, c.Row)
				}
				u.Err().Printf("%d row(s) would be updated", len(cells))
				return nil
			}
			u.Out().Printf("%d", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the cells that would be written without writing")
	cmd.Flags().IntVar(&writesPerMinute, "writes-per-minute", 0, "Pace row writes to stay under the Sheets write quota (0 = unlimited)")
	return cmd
}

func printRows(ctx context.Context, rangeSpec string, rows googleapi.RowMatrix, emptyMsg string) error {
	if outfmt.IsJSON(ctx) {
		return outfmt.WriteJSON(os.Stdout, map[string]any{
			"range":  rangeSpec,
			"values": rows,
		})
	}
	if len(rows) == 0 {
		if u := ui.FromContext(ctx); u != nil {
			u.Err().Println(emptyMsg)
		}
		return nil
	}
	return outfmt.WriteRows(ctx, os.Stdout, rows)
}

func readValues(valuesJSON, tsvPath string) (googleapi.RowMatrix, error) {
	switch {
	case valuesJSON != "" && tsvPath != "":
		return nil, errors.New("use either --values or --tsv, not both")
	case valuesJSON != "":
		return parseValuesJSON(valuesJSON)
	case tsvPath != "":
		return readTSV(tsvPath)
	default:
		return nil, errors.New("no values (use --values or --tsv)")
	}
}

// parseValuesJSON accepts numbers and booleans as cells and keeps their
// literal text.
func parseValuesJSON(raw string) (googleapi.RowMatrix, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("--values: expected a JSON array of rows: %w", err)
	}
	out := make(googleapi.RowMatrix, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			switch v := cell.(type) {
			case nil:
			case string:
				cells[j] = v
			case json.Number, bool:
				cells[j] = fmt.Sprint(v)
			default:
				return nil, fmt.Errorf("--values: row %d cell %d is not a scalar", i+1, j+1)
			}
		}
		out[i] = cells
	}
	return out, nil
}

func readTSV(path string) (googleapi.RowMatrix, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("--tsv: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("--tsv: %w", err)
	}
	return googleapi.RowMatrix(records), nil
}

func parseOffset(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, newUsageError(fmt.Errorf("invalid argument %q for %s: expected a column offset >= 0", raw, name))
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
