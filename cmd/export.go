package cmd

import (
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/treefs"
)

var exportSchema bool

func init() {
	exportCmd.Flags().BoolVar(&exportSchema, "with-schema", false, "Also write the generated schema as "+treefs.SchemaFile)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [bundle] [dir]",
	Short: "Write a bundle's assembled file tree to a directory",
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

		var opts []treefs.Option
		if exportSchema {
			opts = append(opts, treefs.WithSchema(q.Schema()))
		}
		n, err := copyTree(treefs.New(q.Files(), opts...), osfs.New(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d files to %s\n", n, args[1])
		return nil
	},
}

// copyTree copies every file and directory of src into dst.
func copyTree(src, dst billy.Filesystem) (int, error) {
	n := 0
	err := util.Walk(src, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return dst.MkdirAll(p, 0o755)
		}
		data, err := util.ReadFile(src, p)
		if err != nil {
			return err
		}
		n++
		return util.WriteFile(dst, p, data, 0o644)
	})
	return n, err
}
