// Package mcarcli implements the mcar command line: index management,
// one-shot item delivery and scan inspection.
package mcarcli

import (
	"github.com/spf13/cobra"

	"mediacarousel/internal/version"
)

func NewRootCommand() *cobra.Command {
	opts := newDefaultOptions()
	cmd := &cobra.Command{
		Use:   "mcar",
		Short: "Media carousel discovery and queueing tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Version = version.String()
	cmd.InitDefaultVersionFlag()
	if f := cmd.Flags().Lookup("version"); f != nil {
		f.Shorthand = "v"
	}

	withOptionsContext(cmd, opts)
	bindFlags(cmd, opts)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts := optionsFrom(cmd); opts != nil {
			return opts.Prepare()
		}
		return nil
	}

	cmd.AddCommand(newIndexCommand())
	cmd.AddCommand(newNextCommand())
	cmd.AddCommand(newScanCommand())
	return cmd
}
