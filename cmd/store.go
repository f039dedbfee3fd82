package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/quill/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Save bundles in a SQLite database and load them as DB#NAME",
}

var storePutCmd = &cobra.Command{
	Use:   "put [db] [bundle]",
	Short: "Assemble a bundle and save its files under its manifest name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		q, err := loadBundle(e, args[1])
		if err != nil {
			return err
		}

		st, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Put(cmd.Context(), q.Name(), q.Files()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%d files)\n", q.Name(), len(q.Files().Files()))
		return nil
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list [db]",
	Short: "List saved bundles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		entries, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%-24s %5d files  %s\n", e.Name, e.Files, e.Stored.Format(time.RFC3339))
		}
		return nil
	},
}

var storeRemoveCmd = &cobra.Command{
	Use:   "rm [db] [name]",
	Short: "Delete a saved bundle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ok, err := st.Delete(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrNotFound, args[1])
		}
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storePutCmd, storeListCmd, storeRemoveCmd)
	rootCmd.AddCommand(storeCmd)
}
