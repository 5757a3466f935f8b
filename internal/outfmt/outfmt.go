package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

type Mode struct {
	JSON  bool
	Plain bool
}

type ParseError struct{ msg string }

func (e *ParseError) Error() string { return e.msg }

type ctxKey struct{}

// FromEnv reads GOGSA_JSON / GOGSA_PLAIN so scripts can pick a mode once.
func FromEnv() Mode {
	return Mode{
		JSON:  envBool("GOGSA_JSON"),
		Plain: envBool("GOGSA_PLAIN"),
	}
}

func FromFlags(jsonOut, plain bool) (Mode, error) {
	if jsonOut && plain {
		return Mode{}, &ParseError{msg: "invalid output mode (cannot combine --json and --plain)"}
	}
	return Mode{JSON: jsonOut, Plain: plain}, nil
}

func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, ctxKey{}, mode)
}

func FromContext(ctx context.Context) Mode {
	if ctx == nil {
		return Mode{}
	}
	if v, ok := ctx.Value(ctxKey{}).(Mode); ok {
		return v
	}
	return Mode{}
}

func IsJSON(ctx context.Context) bool  { return FromContext(ctx).JSON }
func IsPlain(ctx context.Context) bool { return FromContext(ctx).Plain }

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRows prints rows as TSV in plain mode and as an aligned table
// otherwise.
func WriteRows(ctx context.Context, w io.Writer, rows [][]string) error {
	if IsPlain(ctx) {
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
