package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/config"
	"github.com/maestroSwift/villarbolsillo/internal/ledger"
	"github.com/maestroSwift/villarbolsillo/internal/menu"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/participant"
	"github.com/maestroSwift/villarbolsillo/internal/session"
)

func playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Run an interactive session",
		Long: `Run the interactive menus used during a class session. Management
options ask for the admin key; a participant's own movements also accept
their participant id.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adminKey, err := config.LoadAdminKey(viper.GetViper())
			if err != nil {
				return err
			}
			sess, err := session.New(adminKey)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), true)

			p := &player{
				app:      a,
				session:  sess,
				prompter: cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
			}
			err = p.run(ctx)
			if handler.WasInterrupted() {
				return nil
			}
			return err
		},
	}
}

// player runs the menu loop for one session.
type player struct {
	app      *app
	session  *session.Session
	prompter *cli.Prompter
}

func (p *player) run(ctx context.Context) error {
	p.prompter.Say(cli.FormatTitle("Villarbolsillo"))

	state := menu.Main
	for state != menu.Exit {
		m, ok := menu.For(state)
		if !ok {
			return fmt.Errorf("%w: %s", menu.ErrInvalidCommand, state)
		}
		p.showMenu(m)

		input, err := p.prompter.Ask(ctx, "Option")
		if err != nil {
			if errors.Is(err, cli.ErrInputClosed) {
				return nil
			}
			return err
		}
		opt, err := menu.Transition(state, input)
		if err != nil {
			p.prompter.Say(cli.FormatError(err.Error()))
			continue
		}
		if err := p.authorize(ctx, opt.Level); err != nil {
			if errors.Is(err, cli.ErrInputClosed) || errors.Is(err, cli.ErrInputCancelled) {
				return nil
			}
			p.prompter.Say(describeError(err))
			continue
		}
		if err := p.perform(ctx, opt.Action); err != nil {
			if errors.Is(err, cli.ErrInputClosed) || errors.Is(err, cli.ErrInputCancelled) {
				return nil
			}
			p.prompter.Say(describeError(err))
			continue
		}
		state = opt.Next
	}
	p.prompter.Say(cli.FormatInfo("See you later! " + cli.WalletIcon))
	return nil
}

func (p *player) showMenu(m menu.Menu) {
	title := m.Title
	if sel := p.session.Participant(); sel != nil {
		title += " · " + sel.FullName()
	}
	p.prompter.Say("")
	p.prompter.Say(cli.FormatMenuTitle(title))
	for _, opt := range m.Options {
		line := fmt.Sprintf("  [%s] %s", opt.Key, opt.Label)
		if opt.Level == session.Admin {
			line += cli.SubtleStyle.Render(" (admin)")
		}
		p.prompter.Say(line)
	}
}

func (p *player) authorize(ctx context.Context, level session.Level) error {
	if level == session.Public {
		return nil
	}
	if level == session.Owner {
		if _, err := p.session.RequireParticipant(); err != nil {
			return err
		}
	}
	key, err := p.prompter.AskSecret(ctx, "Key")
	if err != nil {
		return err
	}
	return p.session.Authorize(level, key)
}

func (p *player) perform(ctx context.Context, action menu.Action) error {
	switch action {
	case menu.ActionNone, menu.ActionQuit:
		return nil
	case menu.ActionCreateParticipant:
		return p.createParticipant(ctx)
	case menu.ActionListParticipants:
		return p.listParticipants(ctx)
	case menu.ActionFindParticipant:
		return p.findParticipant(ctx)
	case menu.ActionShowParticipant:
		return p.showParticipant(ctx)
	case menu.ActionEditParticipant:
		return p.editParticipant(ctx)
	case menu.ActionDeleteParticipant:
		return p.deleteParticipant(ctx)
	case menu.ActionAssignCharacter:
		return p.assignCharacter(ctx)
	case menu.ActionRemoveCharacter:
		return p.removeCharacter(ctx)
	case menu.ActionOpenAccounts:
		return p.openAccounts(ctx)
	case menu.ActionDeleteAccount:
		return p.deleteAccount(ctx)
	case menu.ActionListAccounts:
		return p.listAccounts(ctx)
	case menu.ActionNewMovement:
		return p.newMovement(ctx)
	case menu.ActionListMovements:
		return p.listMovements(ctx)
	case menu.ActionRefundMovement:
		return p.refundMovement(ctx)
	case menu.ActionDeleteMovement:
		return p.deleteMovement(ctx)
	case menu.ActionPurgeMovements:
		return p.purgeMovements(ctx)
	}
	return fmt.Errorf("%w: action %q", menu.ErrInvalidCommand, action)
}

// reload refreshes the selected participant from the store.
func (p *player) reload(ctx context.Context) (*model.Participant, error) {
	sel, err := p.session.RequireParticipant()
	if err != nil {
		return nil, err
	}
	fresh, err := p.app.participants.Get(ctx, sel.ID)
	if err != nil {
		return nil, err
	}
	p.session.Select(fresh)
	return fresh, nil
}

func (p *player) characterID(ctx context.Context) (string, error) {
	sel, err := p.reload(ctx)
	if err != nil {
		return "", err
	}
	if sel.CharacterID == "" {
		return "", common.ErrNoCharacter
	}
	return sel.CharacterID, nil
}

func (p *player) askNames(ctx context.Context) (participant.Input, error) {
	var in participant.Input
	var err error
	if in.Name, err = p.prompter.AskRequired(ctx, "Name"); err != nil {
		return in, err
	}
	if in.Surname1, err = p.prompter.AskRequired(ctx, "First surname"); err != nil {
		return in, err
	}
	in.Surname2, err = p.prompter.Ask(ctx, "Second surname")
	return in, err
}

func (p *player) createParticipant(ctx context.Context) error {
	in, err := p.askNames(ctx)
	if err != nil {
		return err
	}
	role, err := p.prompter.Choose(ctx, "Role [E]studiante/[C]omerciante", []string{"E", "C"})
	if err != nil {
		return err
	}
	if in.Role, err = participant.ParseRole(role); err != nil {
		return err
	}
	created, err := p.app.participants.Create(ctx, in)
	if err != nil {
		return err
	}
	p.session.Select(created)
	p.prompter.Say(cli.FormatSuccess(fmt.Sprintf("Created %s. Participant key: %s", created.FullName(), created.ID)))
	return nil
}

func (p *player) listParticipants(ctx context.Context) error {
	list, err := p.app.participants.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		p.prompter.Say(cli.SubtitleStyle.Render("No participants yet."))
		return nil
	}
	p.prompter.Say(participantsTable(list))
	return nil
}

func (p *player) findParticipant(ctx context.Context) error {
	in, err := p.askNames(ctx)
	if err != nil {
		return err
	}
	found, err := p.app.participants.FindByFullName(ctx, in.Name, in.Surname1, in.Surname2)
	if err != nil {
		return err
	}
	p.session.Select(found)
	return p.showParticipant(ctx)
}

func (p *player) showParticipant(ctx context.Context) error {
	sel, err := p.reload(ctx)
	if err != nil {
		return err
	}
	var c *model.Character
	if sel.CharacterID != "" {
		if c, err = p.app.ledger.Character(ctx, sel.CharacterID); err != nil {
			return err
		}
	}
	p.prompter.Say(participantDetails(sel, c))
	return nil
}

func (p *player) editParticipant(ctx context.Context) error {
	sel, err := p.reload(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, len(participant.Fields))
	for i, f := range participant.Fields {
		keys[i] = strconv.Itoa(i + 1)
		p.prompter.Say(fmt.Sprintf("  [%d] %s", i+1, f))
	}
	choice, err := p.prompter.Choose(ctx, "Field", keys)
	if err != nil {
		return err
	}
	idx, _ := strconv.Atoi(choice)
	field := participant.Fields[idx-1]

	value, err := p.prompter.Ask(ctx, "New value")
	if err != nil {
		return err
	}
	if field == participant.FieldRole {
		role, err := participant.ParseRole(value)
		if err != nil {
			return err
		}
		value = string(role)
	}
	updated, err := p.app.participants.Update(ctx, sel.ID, field, value)
	if err != nil {
		return err
	}
	p.session.Select(updated)
	p.prompter.Say(cli.FormatSuccess("Updated " + updated.FullName()))
	return nil
}

func (p *player) deleteParticipant(ctx context.Context) error {
	sel, err := p.reload(ctx)
	if err != nil {
		return err
	}
	ok, err := p.prompter.Confirm(ctx, "Delete "+sel.FullName()+"?")
	if err != nil || !ok {
		return err
	}
	if err := p.app.participants.Delete(ctx, sel.ID); err != nil {
		return err
	}
	p.session.Clear()
	p.prompter.Say(cli.FormatSuccess("Participant deleted"))
	return nil
}

func (p *player) assignCharacter(ctx context.Context) error {
	sel, err := p.reload(ctx)
	if err != nil {
		return err
	}
	all, err := p.app.participants.Characters(ctx)
	if err != nil {
		return err
	}
	p.prompter.Say(charactersTable(all))

	ref, err := p.prompter.AskInt(ctx, "Character reference", 1, 1<<16)
	if err != nil {
		return err
	}
	c, err := p.app.participants.AssignCharacter(ctx, sel.ID, ref, false)
	if errors.Is(err, participant.ErrAlreadyAssigned) {
		replace, cerr := p.prompter.Confirm(ctx, "Replace the current character?")
		if cerr != nil || !replace {
			return cerr
		}
		c, err = p.app.participants.AssignCharacter(ctx, sel.ID, ref, true)
	}
	if err != nil {
		return err
	}
	if _, err := p.reload(ctx); err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess(fmt.Sprintf("Assigned character %d (%s)", c.Reference, c.Title)))
	return nil
}

func (p *player) removeCharacter(ctx context.Context) error {
	sel, err := p.reload(ctx)
	if err != nil {
		return err
	}
	if err := p.app.participants.UnassignCharacter(ctx, sel.ID); err != nil {
		return err
	}
	if _, err := p.reload(ctx); err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess("Character freed"))
	return nil
}

func (p *player) openAccounts(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	var opts ledger.OpenOptions
	if opts.Savings, err = p.prompter.Confirm(ctx, "Open a savings account?"); err != nil {
		return err
	}
	if opts.Retirement, err = p.prompter.Confirm(ctx, "Open a retirement account?"); err != nil {
		return err
	}
	accounts, err := p.app.ledger.OpenAccounts(ctx, characterID, opts)
	if err != nil {
		return err
	}
	p.prompter.Say(accountsTable(accounts))
	return nil
}

func (p *player) listAccounts(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	accounts, err := p.app.ledger.Accounts(ctx, characterID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		p.prompter.Say(cli.SubtitleStyle.Render("No accounts yet."))
		return nil
	}
	p.prompter.Say(accountsTable(accounts))
	return nil
}

// chooseAccount asks for one of the character's existing accounts.
func (p *player) chooseAccount(ctx context.Context, characterID string) (*model.Account, error) {
	accounts, err := p.app.ledger.Accounts(ctx, characterID)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, t := range model.AccountTypes {
		if acc := accounts.Get(t); acc != nil {
			keys = append(keys, string(t))
			p.prompter.Say(fmt.Sprintf("  %s %s", t, cli.FormatAmount(acc.Balance())))
		}
	}
	if len(keys) == 0 {
		return nil, common.ErrMissingAccount
	}
	choice, err := p.prompter.Choose(ctx, "Account", keys)
	if err != nil {
		return nil, err
	}
	return accounts.Get(model.AccountType(choice)), nil
}

func (p *player) deleteAccount(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	acc, err := p.chooseAccount(ctx, characterID)
	if err != nil {
		return err
	}
	if err := p.app.ledger.DeleteAccount(ctx, acc.ID); err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess(fmt.Sprintf("Deleted %s account", acc.Type)))
	return nil
}

func (p *player) newMovement(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	quota, err := p.app.ledger.Quota(ctx, characterID)
	if err != nil {
		return err
	}
	p.prompter.Say(cli.SubtleStyle.Render("Quota left this week: ") + formatQuota(quota))
	if quota.Exhausted() {
		return common.Policy("new movement", common.ErrQuotaExhausted, "the maximum number of movements this week has been reached")
	}

	merchants, err := p.app.ledger.Merchants(ctx)
	if err != nil {
		return err
	}
	if len(merchants) == 0 {
		return common.NewUserError("the catalog has no merchants", common.ErrNotFound)
	}
	for i, m := range merchants {
		p.prompter.Say(fmt.Sprintf("  [%d] %s", i+1, m.Name))
	}
	mi, err := p.prompter.AskInt(ctx, "Merchant", 1, len(merchants))
	if err != nil {
		return err
	}
	merchant := merchants[mi-1]
	if merchant.Rules != "" {
		p.prompter.Say(cli.FormatInfo(merchant.Rules))
	}

	products, err := p.app.ledger.Products(ctx, merchant.ID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return common.NewUserError(merchant.Name+" has nothing for sale", common.ErrNotFound)
	}
	for i, prod := range products {
		p.prompter.Say(fmt.Sprintf("  [%d] %s %s (%s)", i+1, prod.Name, cli.FormatAmount(prod.DisplayPrice()), prod.SizeClass))
	}
	pi, err := p.prompter.AskInt(ctx, "Product", 1, len(products))
	if err != nil {
		return err
	}
	product := products[pi-1]

	req := ledger.Request{ProductID: product.ID, Method: model.MethodDebitCard}
	if target, ok := ledger.TransferTarget(product.Name); ok {
		prompt := "Contribution"
		if target == model.AccountCard {
			prompt = "Extra on top of the minimum payment"
		}
		if req.Amount, err = p.prompter.AskAmount(ctx, prompt); err != nil {
			return err
		}
	} else {
		method, err := p.prompter.Choose(ctx, "Pay by [D]ebit card or [T]alón", []string{"D", "T"})
		if err != nil {
			return err
		}
		if method == "T" {
			req.Method = model.MethodCheck
		}
	}

	result, err := p.app.ledger.NewMovement(ctx, characterID, req)
	for _, line := range formatReport(result.Reconciliation) {
		p.prompter.Say(line)
	}
	if err != nil {
		return err
	}
	p.prompter.Say(formatOutcome(result.Outcome))
	p.prompter.Say(cli.SubtleStyle.Render("Quota left this week: ") + formatQuota(result.Quota))
	return nil
}

func (p *player) listMovements(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	acc, err := p.chooseAccount(ctx, characterID)
	if err != nil {
		return err
	}
	lines, err := p.app.ledger.Statement(ctx, acc.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		p.prompter.Say(cli.SubtitleStyle.Render("No movements."))
		return nil
	}
	p.prompter.Say(statementTable(lines))
	return nil
}

func (p *player) refundMovement(ctx context.Context) error {
	id, err := p.prompter.AskRequired(ctx, "Movement id")
	if err != nil {
		return err
	}
	m, err := p.app.ledger.RefundMovement(ctx, id)
	if err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess(fmt.Sprintf("Refunded %s: net %s", m.Concept, cli.FormatSigned(m.SignedAmount()))))
	return nil
}

func (p *player) deleteMovement(ctx context.Context) error {
	id, err := p.prompter.AskRequired(ctx, "Movement id")
	if err != nil {
		return err
	}
	ok, err := p.prompter.Confirm(ctx, "Delete movement "+id+"?")
	if err != nil || !ok {
		return err
	}
	if err := p.app.ledger.DeleteMovement(ctx, id); err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess("Movement deleted"))
	return nil
}

func (p *player) purgeMovements(ctx context.Context) error {
	characterID, err := p.characterID(ctx)
	if err != nil {
		return err
	}
	acc, err := p.chooseAccount(ctx, characterID)
	if err != nil {
		return err
	}
	ok, err := p.prompter.Confirm(ctx, fmt.Sprintf("Delete every movement of the %s account?", acc.Type))
	if err != nil || !ok {
		return err
	}
	n, err := p.app.purge(ctx, acc.ID)
	if err != nil {
		return err
	}
	p.prompter.Say(cli.FormatSuccess(fmt.Sprintf("Deleted %d movement(s)", n)))
	return nil
}
