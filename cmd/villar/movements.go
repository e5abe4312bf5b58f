package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

func movementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "movements",
		Aliases: []string{"movement", "m"},
		Short:   "Buy, list, refund and delete movements",
	}
	cmd.AddCommand(newMovementCmd())
	cmd.AddCommand(listMovementsCmd())
	cmd.AddCommand(refundMovementCmd())
	cmd.AddCommand(deleteMovementCmd())
	cmd.AddCommand(purgeMovementsCmd())
	return cmd
}

func newMovementCmd() *cobra.Command {
	var (
		ref      int
		product  string
		merchant string
		method   string
		amount   string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Buy a product or move money between accounts",
		Long: `Buy a product. Pending salaries and bills are posted first, then the weekly
quota and the balance are checked.

For PAGO DEUDA TARJETA the amount is paid on top of the minimum card payment;
for APORTACIÓN CUENTA JUBILACIÓN and PLAN AHORRO it is the contribution.`,
		Example: `  villar movements new -c 1 --product PAN
  villar movements new -c 1 --product "PLAN AHORRO" --amount 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			req := ledger.Request{}
			if amount != "" {
				v, err := cli.ParseAmount(amount)
				if err != nil {
					return err
				}
				req.Amount = v
			}
			m, err := parseMethod(method)
			if err != nil {
				return err
			}
			req.Method = m

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.character(ctx, ref)
			if err != nil {
				return err
			}
			p, err := a.product(ctx, product, merchant)
			if err != nil {
				return err
			}
			req.ProductID = p.ID

			result, err := a.ledger.NewMovement(ctx, c.ID, req)
			for _, line := range formatReport(result.Reconciliation) {
				a.println(line)
			}
			if err != nil {
				return err
			}
			a.println(formatOutcome(result.Outcome))
			a.println(cli.SubtleStyle.Render("Quota left this week: ") + formatQuota(result.Quota))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	cmd.Flags().StringVarP(&product, "product", "p", "", "product name")
	cmd.Flags().StringVarP(&merchant, "merchant", "m", "", "merchant, when several sell the product")
	cmd.Flags().StringVar(&method, "method", "", "payment method (TARJETA-DÉBITO, TALÓN, ...)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "contribution or extra card payment")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func listMovementsCmd() *cobra.Command {
	var ref int
	var accountType string
	var browse bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show an account statement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			t, err := parseAccountType(accountType)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.character(ctx, ref)
			if err != nil {
				return err
			}
			acc, err := a.account(ctx, c.ID, t)
			if err != nil {
				return err
			}
			lines, err := a.ledger.Statement(ctx, acc.ID)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s %s", t, acc.Number)
			if browse && len(lines) > 0 {
				headers, rows := statementRows(lines)
				return cli.BrowseTable(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), title, headers, rows)
			}
			a.println(cli.FormatHeading(cli.BankIcon, title))
			if len(lines) == 0 {
				a.println(cli.SubtitleStyle.Render("No movements."))
				return nil
			}
			a.println(statementTable(lines))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	cmd.Flags().StringVarP(&accountType, "type", "t", string(model.AccountCurrent), "account type")
	cmd.Flags().BoolVarP(&browse, "browse", "b", false, "scroll through the statement interactively")
	return cmd
}

func refundMovementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <movement-id>",
		Short: "Return a purchase, keeping the refund penalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.ledger.RefundMovement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Refunded %s: net %s", m.Concept, cli.FormatSigned(m.SignedAmount()))))
			return nil
		},
	}
}

func deleteMovementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <movement-id>",
		Short: "Delete one movement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ledger.DeleteMovement(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Deleted movement " + args[0]))
			return nil
		},
	}
}

func purgeMovementsCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge <account-id>",
		Short: "Delete every movement of an account",
		Long: `Delete every movement of an account. An automatic checkpoint is taken
first so the purge can be undone with: villar checkpoint restore`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !yes {
				prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := prompter.Confirm(ctx, "Delete every movement of "+args[0]+"?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.purge(ctx, args[0])
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Deleted %d movement(s)", n)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
