package cli

import (
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/phonebook/internal/config"
	"github.com/Makepad-fr/phonebook/internal/ui"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	var path string
	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.cfgFile
			}
			written, err := config.WriteFile(a.cfg, path)
			if err != nil {
				return err
			}
			ui.OK("wrote " + written)
			return nil
		},
	}
	save.Flags().StringVar(&path, "path", "", "file to write (default is --config or the user config dir)")

	cmd.AddCommand(show, save)
	return cmd
}
