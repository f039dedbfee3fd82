package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/backend"
	"github.com/agentic-research/quill/internal/document"
	"github.com/agentic-research/quill/internal/logger"
)

var (
	renderFormat string
	renderOutput string
)

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "Output format (default: the backend's first)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write the artifact to this file instead of stdout")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [bundle] [document.md]",
	Short: "Render a document with a bundle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, q, err := loadRegistered(args[0])
		if err != nil {
			return err
		}
		doc, err := readDocument(args[1])
		if err != nil {
			return err
		}
		if tag := doc.QuillTag(); tag != document.DefaultTag && tag != q.Name() {
			logger.Warn("%s names quill %q; rendering with %q", args[1], tag, q.Name())
		}

		wf, err := e.Workflow(q.Name())
		if err != nil {
			return err
		}
		art, err := wf.Render(cmd.Context(), doc, backend.OutputFormat(renderFormat))
		if err != nil {
			return err
		}

		if renderOutput == "" {
			_, err = cmd.OutOrStdout().Write(art.Bytes)
			return err
		}
		return os.WriteFile(renderOutput, art.Bytes, 0o644)
	},
}
