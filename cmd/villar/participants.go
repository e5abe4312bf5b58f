package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestroSwift/villarbolsillo/internal/cli"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/participant"
)

func participantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "participants",
		Aliases: []string{"participant", "p"},
		Short:   "Manage the people taking part in the simulation",
	}

	cmd.AddCommand(createParticipantCmd())
	cmd.AddCommand(findParticipantCmd())
	cmd.AddCommand(listParticipantsCmd())
	cmd.AddCommand(updateParticipantCmd())
	cmd.AddCommand(deleteParticipantCmd())
	cmd.AddCommand(assignCharacterCmd())
	cmd.AddCommand(unassignCharacterCmd())
	cmd.AddCommand(listCharactersCmd())

	return cmd
}

func addNameFlags(cmd *cobra.Command, in *participant.Input) {
	cmd.Flags().StringVar(&in.Name, "name", "", "first name")
	cmd.Flags().StringVar(&in.Surname1, "surname1", "", "first surname")
	cmd.Flags().StringVar(&in.Surname2, "surname2", "", "second surname")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("surname1")
}

func createParticipantCmd() *cobra.Command {
	var in participant.Input
	var role string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Register a participant",
		Example: `  villar participants create --name Lucía --surname1 García --surname2 Ruiz --role E`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := participant.ParseRole(role)
			if err != nil {
				return err
			}
			in.Role = r

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.participants.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Created %s (%s)", p.FullName(), p.ID)))
			return nil
		},
	}
	addNameFlags(cmd, &in)
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "ESTUDIANTE (E) or COMERCIANTE (C)")
	return cmd
}

func findParticipantCmd() *cobra.Command {
	var in participant.Input

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Show a participant by full name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.participants.FindByFullName(ctx, in.Name, in.Surname1, in.Surname2)
			if err != nil {
				return err
			}
			var c *model.Character
			if p.CharacterID != "" {
				if c, err = a.ledger.Character(ctx, p.CharacterID); err != nil {
					return err
				}
			}
			a.println(participantDetails(p, c))
			return nil
		},
	}
	addNameFlags(cmd, &in)
	return cmd
}

func listParticipantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List participants by surname",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.participants.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				a.println(cli.SubtitleStyle.Render("No participants yet."))
				return nil
			}
			a.println(participantsTable(list))
			return nil
		},
	}
}

func updateParticipantCmd() *cobra.Command {
	fields := make([]string, 0, len(participant.Fields))
	for _, f := range participant.Fields {
		fields = append(fields, string(f))
	}

	return &cobra.Command{
		Use:   "update <id> <field> [value]",
		Short: "Change one field of a participant",
		Long: fmt.Sprintf(`Change one field of a participant. Fields: %s.
Leaving the value out clears an optional field.`, strings.Join(fields, ", ")),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			field := participant.Field(strings.ToUpper(args[1]))
			if field == participant.FieldRole && value != "" {
				r, err := participant.ParseRole(value)
				if err != nil {
					return err
				}
				value = string(r)
			}
			p, err := a.participants.Update(cmd.Context(), args[0], field, value)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Updated " + p.FullName()))
			return nil
		},
	}
}

func deleteParticipantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a participant without a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.participants.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Deleted participant " + args[0]))
			return nil
		},
	}
}

func assignCharacterCmd() *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "assign <id> <reference>",
		Short: "Give a participant a character",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid character reference %q: %w", args[1], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.participants.AssignCharacter(cmd.Context(), args[0], ref, replace)
			if err != nil {
				return err
			}
			a.println(cli.FormatSuccess(fmt.Sprintf("Assigned character %d (%s)", c.Reference, c.Title)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace a character that has no accounts yet")
	return cmd
}

func unassignCharacterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <id>",
		Short: "Free a participant's character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.participants.UnassignCharacter(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Character freed"))
			return nil
		},
	}
}

func listCharactersCmd() *cobra.Command {
	var availableOnly bool

	cmd := &cobra.Command{
		Use:   "characters",
		Short: "List characters and whether they are taken",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.participants.Characters(cmd.Context())
			if err != nil {
				return err
			}
			if availableOnly {
				free := all[:0]
				for _, c := range all {
					if c.Available {
						free = append(free, c)
					}
				}
				all = free
			}
			a.println(charactersTable(all))
			return nil
		},
	}
	cmd.Flags().BoolVar(&availableOnly, "available", false, "only list free characters")
	return cmd
}
