package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/giving-analytics/internal/cli"
	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func peopleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "people",
		Short: "Manage giving unit members",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a member of a giving unit",
		Long: `Add a person to a giving unit. Classification attributes are written to
every adult member of the unit.

Examples:
  giving people add --giver G100 --first John --last Smith
  giving people add --giver G100 --first Tim --last Smith --child`,
		RunE: runPeopleAdd,
	}
	add.Flags().String("id", "", "Person id (default: generated)")
	add.Flags().String("giver", "", "Giver id of the giving unit (required)")
	add.Flags().String("first", "", "First name")
	add.Flags().String("last", "", "Last name")
	add.Flags().Bool("child", false, "Member is not an adult")
	_ = add.MarkFlagRequired("giver")

	show := &cobra.Command{
		Use:   "show PERSON_ID",
		Short: "Show a person's giving analytics attributes",
		Args:  cobra.ExactArgs(1),
		RunE:  runPeopleShow,
	}

	cmd.AddCommand(add, show)
	return cmd
}

func runPeopleAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	id, _ := cmd.Flags().GetString("id")
	giverID, _ := cmd.Flags().GetString("giver")
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")
	child, _ := cmd.Flags().GetBool("child")

	if id == "" {
		id = uuid.New().String()
	}
	person := &model.Person{
		ID:        id,
		GiverID:   giverID,
		FirstName: first,
		LastName:  last,
		IsAdult:   !child,
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SavePerson(ctx, person); err != nil {
		return common.NewUserError("Could not save person", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %s (%s) in giving unit %s",
		person.FullName(), person.ID, person.GiverID)))
	return nil
}

func runPeopleShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	person, err := store.GetPerson(ctx, args[0])
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError("No person with id "+args[0], err)
	}
	if err != nil {
		return err
	}

	attrs, err := store.GetPersonAttributes(ctx, person.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (giving unit %s)", person.FullName(), person.GiverID)))
	if len(attrs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No attributes recorded"))
		return nil
	}

	for _, key := range model.AttributeKeys() {
		if value, ok := attrs[key]; ok {
			fmt.Fprintf(out, "%-36s %s\n", cli.SubtleStyle.Render(key), value)
		}
	}
	return nil
}
