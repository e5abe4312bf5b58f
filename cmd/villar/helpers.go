package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/config"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/participant"
	"github.com/maestroSwift/villarbolsillo/internal/storage"
)

// app bundles the services a command needs.
type app struct {
	store        *storage.SQLiteStorage
	ledger       *ledger.Ledger
	participants *participant.Service
	out          io.Writer
}

// openApp opens and migrates the configured database and wires the ledger.
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	v := viper.GetViper()

	storeCfg, err := config.LoadStorageConfig(v)
	if err != nil {
		return nil, err
	}
	ledgerCfg, err := config.LoadLedgerConfig(v)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	return &app{
		store:        store,
		ledger:       ledger.New(store, ledgerCfg, ledger.WithProgress(cli.NewBackfillProgress(cmd.ErrOrStderr()))),
		participants: participant.NewService(store),
		out:          cmd.OutOrStdout(),
	}, nil
}

// initStorage opens the database and runs migrations.
func initStorage(ctx context.Context, cfg config.StorageConfig) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Path, storage.WithRetryOptions(cfg.Retry))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(line string) {
	fmt.Fprintln(a.out, line)
}

// character finds a character by its catalog reference.
func (a *app) character(ctx context.Context, reference int) (*model.Character, error) {
	all, err := a.participants.Characters(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.Character.Reference == reference {
			return a.ledger.Character(ctx, c.Character.ID)
		}
	}
	return nil, common.NewUserError(fmt.Sprintf("no character with reference %d", reference), common.ErrNotFound)
}

// product finds a product by name, narrowed to one merchant when the name
// is offered by several.
func (a *app) product(ctx context.Context, name, merchant string) (*model.Product, error) {
	merchantID := ""
	if merchant != "" {
		merchants, err := a.ledger.Merchants(ctx)
		if err != nil {
			return nil, err
		}
		for _, m := range merchants {
			if strings.EqualFold(m.Name, merchant) {
				merchantID = m.ID
			}
		}
		if merchantID == "" {
			return nil, common.NewUserError(fmt.Sprintf("no merchant named %q", merchant), common.ErrNotFound)
		}
	}

	products, err := a.ledger.Products(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	var found []model.Product
	for _, p := range products {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return nil, common.NewUserError(fmt.Sprintf("no product named %q", name), common.ErrNotFound)
	case 1:
		return &found[0], nil
	default:
		return nil, common.NewUserError(fmt.Sprintf("%q is sold by several merchants, pass --merchant", name), common.ErrInvalidInput)
	}
}

// account resolves one of the character's accounts by type.
func (a *app) account(ctx context.Context, characterID string, t model.AccountType) (*model.Account, error) {
	accounts, err := a.ledger.Accounts(ctx, characterID)
	if err != nil {
		return nil, err
	}
	acc := accounts.Get(t)
	if acc == nil {
		return nil, common.NewUserError(fmt.Sprintf("character has no %s account", t), common.ErrMissingAccount)
	}
	return acc, nil
}

// parseAccountType accepts the account type names case-insensitively.
func parseAccountType(s string) (model.AccountType, error) {
	t := model.AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", common.NewUserError(fmt.Sprintf("unknown account type %q", s), common.ErrInvalidInput)
	}
	return t, nil
}

// parseMethod accepts the payment method names case-insensitively. Empty
// means the default for the product.
func parseMethod(s string) (model.PaymentMethod, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	m := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", common.NewUserError(fmt.Sprintf("unknown payment method %q", s), common.ErrInvalidInput)
	}
	return m, nil
}

// describeError renders an error for the terminal, with a hint where the
// operator can act on it.
func describeError(err error) string {
	msg := cli.FormatError(err.Error())
	switch {
	case errors.Is(err, common.ErrPartiallyApplied):
		msg += "\n" + cli.FormatWarning("A transfer was only half written. Run: villar balances verify")
	case errors.Is(err, common.ErrQuotaExhausted):
		msg += "\n" + cli.FormatInfo("The weekly quota is used up. Close the week with: villar week close")
	case errors.Is(err, common.ErrMissingConfig):
		msg += "\n" + cli.FormatInfo("Set it in $HOME/.config/villar/config.yaml or through VILLAR_* variables.")
	}
	return msg
}

// purge deletes an account's movements after taking an automatic checkpoint.
func (a *app) purge(ctx context.Context, accountID string) (int, error) {
	manager, err := a.store.NewCheckpointManager()
	if err != nil {
		return 0, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	if err := manager.AutoCheckpoint(ctx, "purge"); err != nil {
		return 0, err
	}
	return a.ledger.PurgeMovements(ctx, accountID)
}
