package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/steipete/gogsa/internal/config"
	"github.com/steipete/gogsa/internal/outfmt"
	"github.com/steipete/gogsa/internal/secrets"
	"github.com/steipete/gogsa/internal/ui"
)

var ensureKeychainAccess = secrets.EnsureKeychainAccess

func newCredentialsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage service account keys stored in the keyring",
	}
	cmd.AddCommand(newCredentialsSetCmd(flags))
	cmd.AddCommand(newCredentialsListCmd())
	cmd.AddCommand(newCredentialsRemoveCmd())
	cmd.AddCommand(newCredentialsDefaultCmd())
	return cmd
}

func newCredentialsSetCmd(flags *rootFlags) *cobra.Command {
	var makeDefault bool

	cmd := &cobra.Command{
		Use:   "set [credentials.json]",
		Short: "Store a service account key file in the keyring",
		Long:  "Validate a service account key file and store it in the keyring under its client_email.\nWithout an argument the --credentials path is used. The first stored key becomes the default.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			path := config.CredentialsPath(flags.Credentials)
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path) //nolint:gosec // user-provided path
			if err != nil {
				return &config.CredentialError{Path: path, Cause: err}
			}
			sa, err := config.ParseServiceAccount(data, path)
			if err != nil {
				return err
			}

			if err := ensureKeychainAccess(); err != nil {
				return fmt.Errorf("keychain access: %w", err)
			}
			store, err := openSecretsStore()
			if err != nil {
				return fmt.Errorf("open keyring: %w", err)
			}

			if err := store.SetCredential(sa.ClientEmail, secrets.Credential{
				Email:      sa.ClientEmail,
				ProjectID:  sa.ProjectID,
				ImportedAt: time.Now().UTC(),
				Document:   data,
			}); err != nil {
				if secrets.IsKeychainLockedError(err.Error()) {
					return fmt.Errorf("store credential: keychain is locked: %w", err)
				}
				return fmt.Errorf("store credential: %w", err)
			}

			isDefault := makeDefault
			if !isDefault {
				if _, err := store.GetDefaultAccount(); errors.Is(err, keyring.ErrKeyNotFound) {
					isDefault = true
				}
			}
			if isDefault {
				if err := store.SetDefaultAccount(sa.ClientEmail); err != nil {
					return fmt.Errorf("set default account: %w", err)
				}
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"stored":     true,
					"email":      sa.ClientEmail,
					"project_id": sa.ProjectID,
					"default":    isDefault,
				})
			}
			u.Out().Successf("Stored %s", sa.ClientEmail)
			if isDefault {
				u.Err().Printf("Default account: %s (use --account default)", sa.ClientEmail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default account")
	return cmd
}

func newCredentialsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored service accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			store, err := openSecretsStore()
			if err != nil {
				return fmt.Errorf("open keyring: %w", err)
			}
			creds, err := store.ListCredentials()
			if err != nil {
				return err
			}
			def, err := store.GetDefaultAccount()
			if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				type item struct {
					Email      string `json:"email"`
					ProjectID  string `json:"project_id,omitempty"`
					ImportedAt string `json:"imported_at,omitempty"`
					Default    bool   `json:"default"`
				}
				out := make([]item, 0, len(creds))
				for _, c := range creds {
					it := item{Email: c.Email, ProjectID: c.ProjectID, Default: c.Email == def}
					if !c.ImportedAt.IsZero() {
						it.ImportedAt = c.ImportedAt.UTC().Format(time.RFC3339)
					}
					out = append(out, it)
				}
				return outfmt.WriteJSON(os.Stdout, map[string]any{"accounts": out})
			}

			if len(creds) == 0 {
				u.Err().Println("No service accounts stored")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range creds {
				mark := ""
				if c.Email == def {
					mark = "default"
				}
				imported := ""
				if !c.ImportedAt.IsZero() {
					imported = c.ImportedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Email, c.ProjectID, imported, mark)
			}
			return tw.Flush()
		},
	}
}

func newCredentialsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <email>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a stored service account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			email := strings.ToLower(strings.TrimSpace(args[0]))
			if email == "" {
				return newUsageError(errors.New("empty email"))
			}

			store, err := openSecretsStore()
			if err != nil {
				return fmt.Errorf("open keyring: %w", err)
			}
			if err := store.DeleteCredential(email); err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"deleted": true, "email": email})
			}
			u.Out().Printf("deleted\t%s", email)
			return nil
		},
	}
}

func newCredentialsDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default [email]",
		Short: "Show or set the default service account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			store, err := openSecretsStore()
			if err != nil {
				return fmt.Errorf("open keyring: %w", err)
			}

			if len(args) == 0 {
				def, err := store.GetDefaultAccount()
				if err != nil {
					if errors.Is(err, keyring.ErrKeyNotFound) {
						return errors.New("no default account (run: gogsa credentials set <file>)")
					}
					return err
				}
				if outfmt.IsJSON(cmd.Context()) {
					return outfmt.WriteJSON(os.Stdout, map[string]any{"email": def})
				}
				u.Out().Println(def)
				return nil
			}

			email := strings.ToLower(strings.TrimSpace(args[0]))
			if _, err := store.GetCredential(email); err != nil {
				return fmt.Errorf("keyring account %s: %w", email, err)
			}
			if err := store.SetDefaultAccount(email); err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"email": email, "default": true})
			}
			u.Out().Successf("Default account: %s", email)
			return nil
		},
	}
}
