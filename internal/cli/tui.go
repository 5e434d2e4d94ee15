package cli

import (
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/phonebook/internal/tui"
)

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive UI (default)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

func (a *app) runTUI(cmd *cobra.Command) error {
	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), ctrl, ctrl.AuthKey())
}
