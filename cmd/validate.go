package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/pipeline"
	"github.com/agentic-research/quill/internal/quillerr"
)

var validateCmd = &cobra.Command{
	Use:   "validate [bundle] [document.md]",
	Short: "Check a document's front matter against a bundle's schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		q, err := loadBundle(e, args[0])
		if err != nil {
			return err
		}
		doc, err := readDocument(args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if _, err := pipeline.Run(q, doc.Fields()); err != nil {
			var verr *quillerr.ValidationError
			if errors.As(err, &verr) {
				for _, is := range verr.Issues {
					fmt.Fprintln(out, is.String())
				}
				return fmt.Errorf("%s: %d issue(s)", args[1], len(verr.Issues))
			}
			return err
		}
		fmt.Fprintf(out, "%s: ok\n", args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
