package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steipete/gogsa/internal/outfmt"
	"github.com/steipete/gogsa/internal/ui"
)

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Service account token commands",
	}
	cmd.AddCommand(newAuthTokenCmd(flags))
	return cmd
}

func newAuthTokenCmd(flags *rootFlags) *cobra.Command {
	var printToken bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token with the configured service account",
		Long:  "Sign a JWT assertion, exchange it at the key's token_uri, and report the result.\nThe token itself is only printed with --print.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd, flags)
			defer cancel()
			u := ui.FromContext(cmd.Context())

			sa, tok, err := mintToken(ctx, flags)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				out := map[string]any{
					"client_email": sa.ClientEmail,
					"token_type":   tok.TokenType,
					"expires_in":   tok.ExpiresIn,
				}
				if !tok.Expiry.IsZero() {
					out["expiry"] = tok.Expiry.UTC().Format(time.RFC3339)
				}
				if printToken {
					out["access_token"] = tok.AccessToken
				}
				return outfmt.WriteJSON(os.Stdout, out)
			}

			if printToken {
				u.Out().Println(tok.AccessToken)
				return nil
			}
			u.Out().Printf("client_email\t%s", sa.ClientEmail)
			u.Out().Printf("token_type\t%s", tok.TokenType)
			if !tok.Expiry.IsZero() {
				u.Out().Printf("expiry\t%s", tok.Expiry.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printToken, "print", false, "Print the access token")
	return cmd
}
