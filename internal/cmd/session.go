package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"

	"github.com/steipete/gogsa/internal/config"
	"github.com/steipete/gogsa/internal/googleapi"
	"github.com/steipete/gogsa/internal/googleauth"
	"github.com/steipete/gogsa/internal/secrets"
	"github.com/steipete/gogsa/internal/sheetops"
)

type tokenMinter interface {
	Mint(ctx context.Context, sa config.ServiceAccount, scope string) (*oauth2.Token, error)
}

var (
	openSecretsStore = secrets.OpenDefault
	newTokenMinter   = func() tokenMinter { return googleauth.NewBroker(nil) }
	newSheetsService = func(ctx context.Context, tok *oauth2.Token) (*sheets.Service, error) {
		return googleapi.NewSheets(ctx, tok, nil)
	}
)

// session is the per-run chain: one credential, one token, one spreadsheet.
type session struct {
	Account   config.ServiceAccount
	Token     *oauth2.Token
	Transport *googleapi.SheetsTransport
	Ops       *sheetops.Operations
}

func commandContext(cmd *cobra.Command, flags *rootFlags) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if flags.Timeout > 0 {
		return context.WithTimeout(ctx, flags.Timeout)
	}
	return context.WithCancel(ctx)
}

// openSession resolves configuration before touching the network so a
// missing SPREADSHEET_ID fails without minting a token.
func openSession(ctx context.Context, flags *rootFlags) (*session, error) {
	spreadsheetID, err := config.SpreadsheetID(flags.Spreadsheet)
	if err != nil {
		return nil, err
	}

	sa, tok, err := mintToken(ctx, flags)
	if err != nil {
		return nil, err
	}

	svc, err := newSheetsService(ctx, tok)
	if err != nil {
		return nil, err
	}
	transport, err := googleapi.NewSheetsTransport(svc, spreadsheetID)
	if err != nil {
		return nil, err
	}

	return &session{
		Account:   sa,
		Token:     tok,
		Transport: transport,
		Ops:       sheetops.New(transport),
	}, nil
}

func mintToken(ctx context.Context, flags *rootFlags) (config.ServiceAccount, *oauth2.Token, error) {
	sa, err := loadServiceAccount(flags)
	if err != nil {
		return config.ServiceAccount{}, nil, err
	}
	scope, err := resolveScope(flags.Scope)
	if err != nil {
		return config.ServiceAccount{}, nil, newUsageError(err)
	}
	tok, err := newTokenMinter().Mint(ctx, sa, scope)
	if err != nil {
		return config.ServiceAccount{}, nil, err
	}
	return sa, tok, nil
}

func loadServiceAccount(flags *rootFlags) (config.ServiceAccount, error) {
	account := strings.TrimSpace(flags.Account)
	if account == "" {
		return config.ReadServiceAccount(config.CredentialsPath(flags.Credentials))
	}

	store, err := openSecretsStore()
	if err != nil {
		return config.ServiceAccount{}, fmt.Errorf("open keyring: %w", err)
	}
	if account == "default" {
		if account, err = store.GetDefaultAccount(); err != nil {
			return config.ServiceAccount{}, fmt.Errorf("default account: %w", err)
		}
	}
	cred, err := store.GetCredential(account)
	if err != nil {
		return config.ServiceAccount{}, fmt.Errorf("keyring account %s: %w", account, err)
	}
	return config.ParseServiceAccount(cred.Document, "keyring:"+cred.Email)
}

// resolveScope accepts service names (sheets, drive.readonly, ...) or full
// scope URLs, comma or space separated.
func resolveScope(raw string) (string, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return "", fmt.Errorf("empty --scope")
	}

	var urls []string
	var services []googleauth.Service
	for _, f := range fields {
		if strings.HasPrefix(f, "https://") {
			urls = append(urls, f)
			continue
		}
		svc, err := googleauth.ParseService(f)
		if err != nil {
			return "", err
		}
		services = append(services, svc)
	}

	named, err := googleauth.ScopeString(services)
	if err != nil {
		return "", err
	}
	if named != "" {
		urls = append(urls, named)
	}
	return strings.Join(urls, " "), nil
}
