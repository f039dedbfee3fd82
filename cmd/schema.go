package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/value"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [bundle]",
	Short: "Print a bundle's JSON Schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		q, err := loadBundle(e, args[0])
		if err != nil {
			return err
		}
		out, err := value.ToHost(q.Schema())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
