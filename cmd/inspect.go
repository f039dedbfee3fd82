package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/value"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [bundle]",
	Short: "Show a bundle's manifest, fields and files",
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

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name:        %s\n", q.Name())
		fmt.Fprintf(out, "backend:     %s\n", q.Backend())
		fmt.Fprintf(out, "description: %s\n", q.Description())
		if q.Version() != "" {
			fmt.Fprintf(out, "version:     %s\n", q.Version())
		}
		if q.Author() != "" {
			fmt.Fprintf(out, "author:      %s\n", q.Author())
		}
		if _, ok := q.Glue(); ok {
			fmt.Fprintf(out, "glue:        %s\n", q.GlueFile())
		} else {
			fmt.Fprintln(out, "glue:        (auto)")
		}

		props := value.NewMap()
		if doc, ok := q.Schema().AsMap(); ok {
			if v, ok := doc.Get("properties"); ok {
				if m, ok := v.AsMap(); ok {
					props = m
				}
			}
		}
		defaults := q.Defaults()
		fmt.Fprintf(out, "fields:      %d\n", props.Len())
		props.Range(func(name string, v value.Value) bool {
			line := "  " + name
			if s, ok := v.AsMap(); ok {
				if t, ok := s.Get("type"); ok {
					line += " (" + strings.Trim(t.String(), `"`) + ")"
				}
			}
			if def, ok := defaults.Get(name); ok {
				line += " = " + def.String()
			}
			fmt.Fprintln(out, line)
			return true
		})

		for _, w := range q.Warnings() {
			fmt.Fprintf(out, "warning:     %s: %s\n", w.Code, w.Message)
		}

		files := q.Files().Files()
		fmt.Fprintf(out, "files:       %d\n", len(files))
		for _, f := range files {
			fmt.Fprintln(out, "  "+f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
