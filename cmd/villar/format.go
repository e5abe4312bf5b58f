package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/participant"
)

func participantsTable(list []model.Participant) string {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{p.ID, p.FullName(), string(p.Role), p.CharacterID})
	}
	return cli.RenderTable([]string{"ID", "NOMBRE", "TIPO", "PERSONAJE"}, rows)
}

func participantDetails(p *model.Participant, c *model.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:       %s\n", p.ID)
	fmt.Fprintf(&b, "Name:     %s\n", p.FullName())
	fmt.Fprintf(&b, "Role:     %s\n", p.Role)
	if c == nil {
		b.WriteString("Character: none")
		return cli.RenderBox("Participant", b.String())
	}
	fmt.Fprintf(&b, "Character: %d %s (%s)\n", c.Reference, c.Title, c.Occupation)
	fmt.Fprintf(&b, "Monthly income: %s\n", cli.FormatAmount(c.MonthlyIncome()))
	fmt.Fprintf(&b, "Card debt: %s, minimum payment %s",
		cli.FormatAmount(c.Profession.CardDebt), cli.FormatAmount(c.Profession.MinCardPayment))
	return cli.RenderBox("Participant", b.String())
}

func charactersTable(list []participant.Availability) string {
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		status := cli.SuccessStyle.Render("free")
		if !a.Available {
			status = cli.SubtleStyle.Render("taken")
		}
		rows = append(rows, []string{strconv.Itoa(a.Character.Reference), a.Character.Title, a.Character.Occupation, status})
	}
	return cli.RenderTable([]string{"REF", "DENOMINACIÓN", "PERSONAJE", "ESTADO"}, rows)
}

func accountsTable(accounts ledger.Accounts) string {
	rows := make([][]string, 0, len(accounts))
	for _, t := range model.AccountTypes {
		acc := accounts.Get(t)
		if acc == nil {
			continue
		}
		rows = append(rows, []string{
			string(t),
			acc.Number,
			cli.FormatAmount(acc.Balance()),
			strconv.Itoa(len(acc.Movements)),
			acc.ID,
		})
	}
	return cli.RenderTable([]string{"TIPO", "NÚMERO", "SALDO", "MOVIMIENTOS", "ID"}, rows)
}

func statementTable(lines []model.StatementLine) string {
	return cli.RenderTable(statementRows(lines))
}

func statementRows(lines []model.StatementLine) ([]string, [][]string) {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		week := ""
		if l.SameWeek {
			week = "•"
		}
		rows = append(rows, []string{
			l.ID,
			l.Concept,
			l.Merchant,
			string(l.Method),
			cli.FormatSigned(l.SignedAmount()),
			cli.FormatAmount(l.RunningBalance),
			week,
		})
	}
	return []string{"ID", "CONCEPTO", "COMERCIO", "MEDIO", "IMPORTE", "SALDO", "SEMANA"}, rows
}

func productsTable(products []model.Product, merchants map[string]string) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.Name,
			merchants[p.MerchantID],
			cli.FormatAmount(p.DisplayPrice()),
			string(p.SizeClass),
			string(p.Frequency),
		})
	}
	return cli.RenderTable([]string{"PRODUCTO", "COMERCIO", "PRECIO", "GESTIÓN", "FRECUENCIA"}, rows)
}

func formatQuota(q model.Quota) string {
	parts := make([]string, 0, len(model.SizeClasses))
	for _, class := range model.SizeClasses {
		n := q.Remaining(class)
		text := fmt.Sprintf("%s %d", class, n)
		if n == 0 {
			text = cli.ErrorStyle.Render(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " · ")
}

func formatReport(r ledger.Report) []string {
	var lines []string
	for _, g := range r.Groups {
		if g.Created == 0 {
			continue
		}
		lines = append(lines, cli.FormatInfo(fmt.Sprintf("Posted %d pending %s movement(s) for %s", g.Created, strings.ToLower(string(g.Frequency)), g.Concept)))
	}
	return lines
}

func formatOutcome(o ledger.Outcome) string {
	if o.Product == nil {
		return ""
	}
	if o.Paired {
		return cli.FormatSuccess(fmt.Sprintf(cli.BankIcon+" %s: moved %s from %s to %s",
			o.Product.Name, cli.FormatAmount(o.Amount), model.AccountCurrent, o.Target))
	}
	return cli.FormatSuccess(fmt.Sprintf(cli.CartIcon+" %s: %s on %s", o.Product.Name, cli.FormatSigned(o.Amount), model.AccountCurrent))
}

func balancesTable(checks []ledger.BalanceCheck) string {
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		cached := "-"
		if c.Cached != nil {
			cached = cli.FormatAmount(*c.Cached)
		}
		status := cli.SuccessStyle.Render(cli.SuccessIcon)
		if c.Drift() {
			status = cli.WarningStyle.Render("corrected")
		}
		rows = append(rows, []string{string(c.Type), cached, cli.FormatAmount(c.Derived), status})
	}
	return cli.RenderTable([]string{"TIPO", "SALDO GUARDADO", "SALDO REAL", "ESTADO"}, rows)
}
