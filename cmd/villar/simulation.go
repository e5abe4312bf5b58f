package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

func quotaCmd() *cobra.Command {
	var ref int

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show how many purchases are left this week",
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
			q, err := a.ledger.Quota(ctx, c.ID)
			if err != nil {
				return err
			}
			a.println(formatQuota(q))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	return cmd
}

func reconcileCmd() *cobra.Command {
	var ref int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Post pending salaries and bills",
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
			report, err := a.ledger.Reconcile(ctx, c.ID)
			for _, line := range formatReport(report) {
				a.println(line)
			}
			if err != nil {
				return err
			}
			if report.Created() == 0 {
				a.println(cli.FormatSuccess("Nothing pending"))
			}
			return nil
		},
	}
	characterFlag(cmd, &ref)
	return cmd
}

func clockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Move the simulation clock",
	}
	cmd.AddCommand(clockAdvanceCmd())
	return cmd
}

func parseFrequency(s string) (model.Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEMANAL", "WEEK", "WEEKLY", "S":
		return model.FrequencyWeekly, nil
	case "MENSUAL", "MONTH", "MONTHLY", "M":
		return model.FrequencyMonthly, nil
	}
	return "", common.NewUserError(fmt.Sprintf("unknown frequency %q", s), common.ErrInvalidInput)
}

func clockAdvanceCmd() *cobra.Command {
	var ref, periods int
	var frequency string

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Let weeks or months pass for a character",
		Long: `Let weeks or months pass for a character. Salaries and bills of that
frequency become due and are posted on the next movement or reconcile.`,
		Example: `  villar clock advance -c 1 --frequency MENSUAL --periods 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			freq, err := parseFrequency(frequency)
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
			n, err := a.ledger.AdvancePeriods(ctx, c.ID, freq, periods)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Advanced %d %s period(s) on %d movement(s)", periods, strings.ToLower(string(freq)), n)))
			return nil
		},
	}
	characterFlag(cmd, &ref)
	cmd.Flags().StringVarP(&frequency, "frequency", "f", string(model.FrequencyMonthly), "SEMANAL or MENSUAL")
	cmd.Flags().IntVarP(&periods, "periods", "n", 1, "number of periods")
	return cmd
}

func weekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Manage the simulated week",
	}

	var ref int
	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "End the week and restore the purchase quota",
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
			n, err := a.ledger.CloseWeek(ctx, c.ID)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Week closed, %d movement(s) settled", n)))
			return nil
		},
	}
	characterFlag(closeCmd, &ref)
	cmd.AddCommand(closeCmd)
	return cmd
}

func balancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Check stored balances against movements",
	}

	var ref int
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute balances and correct stale ones",
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
			checks, err := a.ledger.VerifyBalances(ctx, c.ID)
			if len(checks) > 0 {
				a.println(balancesTable(checks))
			}
			return err
		},
	}
	characterFlag(verifyCmd, &ref)
	cmd.AddCommand(verifyCmd)
	return cmd
}
