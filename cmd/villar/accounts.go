package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
)

func characterFlag(cmd *cobra.Command, ref *int) {
	cmd.Flags().IntVarP(ref, "character", "c", 0, "character reference")
	_ = cmd.MarkFlagRequired("character")
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Open, list and delete a character's accounts",
	}
	cmd.AddCommand(openAccountsCmd())
	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(deleteAccountCmd())
	return cmd
}

func openAccountsCmd() *cobra.Command {
	var ref int
	var opts ledger.OpenOptions

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open the character's accounts",
		Long: `Open the current and card accounts, crediting the first salary and the
profession's card debt. Run again with --savings or --retirement to add the
optional accounts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.character(ctx, ref)
			if err != nil {
				return err
			}
			accounts, err := a.ledger.OpenAccounts(ctx, c.ID, opts)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("%s has %d account(s)", c.Title, len(accounts))))
			a.println(accountsTable(accounts))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	cmd.Flags().BoolVar(&opts.Savings, "savings", false, "also open a savings account")
	cmd.Flags().BoolVar(&opts.Retirement, "retirement", false, "also open a retirement account")
	return cmd
}

func listAccountsCmd() *cobra.Command {
	var ref int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the character's accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.character(ctx, ref)
			if err != nil {
				return err
			}
			accounts, err := a.ledger.Accounts(ctx, c.ID)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				a.println(cli.SubtitleStyle.Render("No accounts yet. Open them with: villar accounts open"))
				return nil
			}
			a.println(cli.FormatHeading(cli.BankIcon, "Accounts of "+c.Title))
			a.println(accountsTable(accounts))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	return cmd
}

func deleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account without movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ledger.DeleteAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Deleted account " + args[0]))
			return nil
		},
	}
}
