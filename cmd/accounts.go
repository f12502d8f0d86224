package cmd

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage connected Google accounts",
	}

	cmd.AddCommand(newAccountsAddCmd())
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsRemoveCmd())

	return cmd
}

func newAccountsAddCmd() *cobra.Command {
	var (
		email string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Connect a Google account",
		Long: `Connect a Google account through the OAuth consent flow. The command
prints the consent URL; after approving access, paste the code Google
shows back into the terminal. The refresh token is stored in the system
keyring, never on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			return runAccountsAdd(email, name)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the account to connect")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the account (optional)")

	return cmd
}

func runAccountsAdd(email, name string) error {
	ctx := context.Background()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	if app.oauth.ClientID == "" || app.oauth.ClientSecret == "" {
		return fmt.Errorf("google.client_id and google.client_secret must be configured (config file or POSTA_GOOGLE_CLIENT_ID / POSTA_GOOGLE_CLIENT_SECRET)")
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	fmt.Printf("Open this URL in your browser and approve access for %s:\n\n  %s\n\n", email, app.oauth.AuthURL(state))
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	token, err := app.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("no refresh token returned; revoke posta's access at https://myaccount.google.com/permissions and try again")
	}

	account, err := app.service.AddAccount(ctx, email, name, token.RefreshToken)
	if err != nil {
		return err
	}

	fmt.Printf("Connected %s (%s)\n", account.Email, account.ID)
	return nil
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			accounts, err := app.service.ListAccounts(ctx)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Println("No accounts connected.")
				return nil
			}
			for _, acc := range accounts {
				if acc.Name != "" {
					fmt.Printf("%s  %s (%s)\n", acc.ID, acc.Email, acc.Name)
				} else {
					fmt.Printf("%s  %s\n", acc.ID, acc.Email)
				}
			}
			return nil
		},
	}
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email-or-id>",
		Short: "Disconnect an account and delete its local data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.close(ctx)

			accounts, err := app.service.ListAccounts(ctx)
			if err != nil {
				return err
			}
			account, err := resolveAccount(accounts, args[0])
			if err != nil {
				return err
			}

			if err := app.service.RemoveAccount(ctx, account.ID); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", account.Email)
			return nil
		},
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
