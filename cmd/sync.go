package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/postamail/posta/internal/commands"
	"github.com/postamail/posta/internal/model"
)

// syncTimeout bounds a one-shot sync run.
const syncTimeout = 5 * time.Minute

func newSyncCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental mail sync",
		Long: `Run one incremental sync against Gmail. With --account, only that
account is synced; otherwise every connected account is synced in turn.

The first sync of an account only establishes the history cursor; later
runs fetch the threads that changed since the previous one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account email or ID to sync (default: all accounts)")

	return cmd
}

func runSync(account string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, syncTimeout)
	defer cancelTimeout()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	accounts, err := app.service.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts connected; run 'posta accounts add' first")
	}

	if account != "" {
		resolved, err := resolveAccount(accounts, account)
		if err != nil {
			return err
		}
		accounts = []model.Account{resolved}
	}

	for _, acc := range accounts {
		if err := syncOne(ctx, app.service, acc); err != nil {
			return err
		}
	}
	return nil
}

func syncOne(ctx context.Context, service *commands.Service, account model.Account) error {
	result, err := service.SyncThreadsIncremental(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("syncing %s: %w", account.Email, err)
	}

	if result.IsFullSync {
		fmt.Printf("%s: cursor established at %s\n", account.Email, result.NewHistoryID)
		return nil
	}
	fmt.Printf("%s: %d threads changed, %d deleted, cursor %s\n",
		account.Email, len(result.ModifiedThreads), len(result.DeletedThreadIDs), result.NewHistoryID)
	return nil
}

// resolveAccount matches by ID first, then by case-insensitive email.
func resolveAccount(accounts []model.Account, key string) (model.Account, error) {
	for _, acc := range accounts {
		if acc.ID == key || strings.EqualFold(acc.Email, key) {
			return acc, nil
		}
	}
	return model.Account{}, fmt.Errorf("no account matching %q", key)
}
