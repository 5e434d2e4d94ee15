package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/phonebook/internal/phonebook"
	"github.com/Makepad-fr/phonebook/internal/ui"
)

func (a *app) newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the auth key",
		Args:  usageArgs(cobra.NoArgs),
	}
	cmd.AddCommand(a.newKeyNewCmd(), a.newKeyCheckCmd(), a.newKeyForgetCmd())
	return cmd
}

func (a *app) newKeyNewCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Ask the server for a new key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			key, loadErr := ctrl.CreateKey(cmd.Context())
			if key == "" {
				return loadErr
			}
			ui.OK("created key " + key)
			fmt.Fprintln(cmd.OutOrStdout(), key)

			if save {
				if err := a.creds.Save(key, a.cfg.URL); err != nil {
					return fmt.Errorf("save key: %w", err)
				}
				ui.OK("saved key to " + a.creds.Dir)
			}
			return loadErr
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "remember the key for later runs")
	return cmd
}

func (a *app) newKeyCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the phonebook with the current key and report the session state",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.controller()
			if err != nil {
				return err
			}
			if ctrl.AuthKey() == "" {
				return usagef("no key: use --key, PHONEBOOK_KEY or 'phonebook key new --save'")
			}
			loadErr := ctrl.LoadKey(cmd.Context())
			s := ctrl.Session()
			if s.Status() != phonebook.StatusAuthenticated {
				return fmt.Errorf("key %s: %s: %w", s.AuthKey, s.Status(), loadErr)
			}
			ui.OK(fmt.Sprintf("key %s is valid (%d entries)", s.AuthKey, len(ctrl.Entries())))
			return nil
		},
	}
}

func (a *app) newKeyForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Delete the saved key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.creds.Delete(); err != nil {
				return fmt.Errorf("forget key: %w", err)
			}
			ui.OK("saved key removed")
			return nil
		},
	}
}
