package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Makepad-fr/phonebook/internal/model"
	"github.com/Makepad-fr/phonebook/internal/ui"
)

func (a *app) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List entries",
		Example: `  phonebook ls
  phonebook ls --format '{{id}} {{fullName}}: {{phoneNumber}}'`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			if err := ctrl.Initialize(cmd.Context(), ctrl.AuthKey()); err != nil {
				return err
			}
			entries := ctrl.Entries()

			if a.cfg.Format == "" {
				ui.EntryTable(entries)
				return nil
			}
			f, err := ui.NewEntryFormatter(a.cfg.Format)
			if err != nil {
				return usageError{err}
			}
			for _, e := range entries {
				ui.Println(f.Format(e))
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "print each entry with a template ({{id}} {{title}} {{firstName}} {{lastName}} {{fullName}} {{phoneNumber}})")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one entry",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			ctrl.SelectEntry(model.ExistingTarget(id))
			if err := ctrl.LoadEntry(cmd.Context()); err != nil {
				return err
			}
			ui.EntryPanel(model.Entry(ctrl.Draft()))
			return nil
		},
	}
}

// entryFlags registers the four field flags on fs.
func entryFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "title, e.g. Mr")
	fs.String("first", "", "first name")
	fs.String("last", "", "last name")
	fs.String("phone", "", "phone number")
}

// applyEntryFlags copies the flags that were given on the command line.
func applyEntryFlags(fs *pflag.FlagSet, d *model.EntryDraft) int {
	n := 0
	set := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
			n++
		}
	}
	set("title", &d.Title)
	set("first", &d.FirstName)
	set("last", &d.LastName)
	set("phone", &d.PhoneNumber)
	return n
}

func (a *app) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create an entry",
		Example: `  phonebook add --title Mr --first Fred --last Jones --phone "01962 000000"`,
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			ctrl.SelectEntry(model.NewTarget())
			if err := ctrl.LoadEntry(cmd.Context()); err != nil {
				return err
			}
			var n int
			ctrl.UpdateDraft(func(d *model.EntryDraft) { n = applyEntryFlags(cmd.Flags(), d) })
			if n == 0 {
				return usagef("add: give at least one of --title, --first, --last, --phone")
			}
			if err := ctrl.Submit(cmd.Context()); err != nil {
				return err
			}
			ui.OK(fmt.Sprintf("added %s (%d entries)", model.Entry(ctrl.Draft()).FullName(), len(ctrl.Entries())))
			return nil
		},
	}
	entryFlags(cmd.Flags())
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Change fields of an entry; only the given flags change",
		Example: `  phonebook edit 3 --phone "01962 000002"`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			ctrl.SelectEntry(model.ExistingTarget(id))
			if err := ctrl.LoadEntry(cmd.Context()); err != nil {
				return err
			}
			var n int
			ctrl.UpdateDraft(func(d *model.EntryDraft) { n = applyEntryFlags(cmd.Flags(), d) })
			if n == 0 {
				return usagef("edit: nothing to change")
			}
			if err := ctrl.Submit(cmd.Context()); err != nil {
				return err
			}
			ui.OK(fmt.Sprintf("updated entry %d", id))
			return nil
		},
	}
	entryFlags(cmd.Flags())
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an entry",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			ctrl.SelectEntry(model.ExistingTarget(id))
			if err := ctrl.Remove(cmd.Context()); err != nil {
				return err
			}
			ui.OK(fmt.Sprintf("removed entry %d (%d left)", id, len(ctrl.Entries())))
			return nil
		},
	}
}
