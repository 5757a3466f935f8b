package googleapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/steipete/gogsa/internal/config"
)

// RowMatrix is a block of cell values: rows in sheet order, cells in column
// order.
type RowMatrix [][]string

type ValueInputOption string

const (
	// InputRaw stores strings verbatim.
	InputRaw ValueInputOption = "RAW"
	// InputUserEntered parses input as if typed into the UI, so formulas
	// are evaluated.
	InputUserEntered ValueInputOption = "USER_ENTERED"
)

func ParseValueInputOption(s string) (ValueInputOption, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case string(InputRaw):
		return InputRaw, nil
	case string(InputUserEntered):
		return InputUserEntered, nil
	default:
		return "", fmt.Errorf("unknown value input option %q (expected raw|user-entered)", s)
	}
}

// AuthorizedClient returns an HTTP client that attaches token to every
// request. base supplies the underlying transport and may be nil.
func AuthorizedClient(ctx context.Context, token *oauth2.Token, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}

// NewSheets builds a Sheets service that authenticates with token. base is
// the underlying HTTP client (nil for the default).
func NewSheets(ctx context.Context, token *oauth2.Token, base *http.Client, opts ...option.ClientOption) (*sheets.Service, error) {
	slog.Debug("creating sheets service")

	all := append([]option.ClientOption{option.WithHTTPClient(AuthorizedClient(ctx, token, base))}, opts...)
	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetsTransport reads and writes value ranges of one spreadsheet.
type SheetsTransport struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewSheetsTransport(svc *sheets.Service, spreadsheetID string) (*SheetsTransport, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, &config.ConfigurationError{Key: config.EnvSpreadsheetID}
	}
	return &SheetsTransport{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (t *SheetsTransport) SpreadsheetID() string { return t.spreadsheetID }

// GetRange returns the values in rng. A range the API reports without
// values yields an empty, non-nil matrix.
func (t *SheetsTransport) GetRange(ctx context.Context, rng string) (RowMatrix, error) {
	slog.Debug("sheets get", "spreadsheet", t.spreadsheetID, "range", rng)

	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return fromValues(resp.Values), nil
}

// PutRange overwrites rng with m. opt is required because it decides
// whether formulas are evaluated.
func (t *SheetsTransport) PutRange(ctx context.Context, rng string, m RowMatrix, opt ValueInputOption) error {
	if opt != InputRaw && opt != InputUserEntered {
		return fmt.Errorf("put %s: invalid value input option %q", rng, opt)
	}
	slog.Debug("sheets put", "spreadsheet", t.spreadsheetID, "range", rng, "rows", len(m), "input", opt)

	vr := &sheets.ValueRange{Values: toValues(m)}
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, rng, vr).
		ValueInputOption(string(opt)).
		Context(ctx).
		Do()
	if err != nil {
		return wrapError(err)
	}
	return nil
}

func fromValues(values [][]interface{}) RowMatrix {
	out := make(RowMatrix, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				cells[i] = fmt.Sprintf("%v", cell)
			}
		}
		out = append(out, cells)
	}
	return out
}

func toValues(m RowMatrix) [][]interface{} {
	out := make([][]interface{}, len(m))
	for i, row := range m {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}
