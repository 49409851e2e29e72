package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/caseforge/internal/store"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List, show, search, export, and delete saved case documents",
	Long: `Documents manages case documents saved with synthesize --save. Documents
live in a SQLite database (see --db) with one row per document and one row per
section, so section text can be searched across every saved case.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		caseID, _ := cmd.Flags().GetString("case")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(st *store.Store) error {
			sums, err := st.List(cmd.Context(), store.ListOptions{CaseID: caseID, Limit: limit})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sums)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCASE\tMODE\tBUCKET\tSECTIONS\tDEGRADED\tCREATED")
			for _, s := range sums {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
					s.ID, s.CaseID, s.Mode, s.Bucket, s.Sections, s.Degraded, s.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render one saved document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withStore(func(st *store.Store) error {
			doc, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), doc, format)
		})
	},
}

var documentsSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find saved sections containing text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(st *store.Store) error {
			matches, err := st.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s\n    %s\n", m.DocumentID, m.CaseID, m.Section, m.Snippet)
			}
			return nil
		})
	},
}

var documentsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved documents as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		caseID, _ := cmd.Flags().GetString("case")
		return withStore(func(st *store.Store) error {
			return st.Export(cmd.Context(), cmd.OutOrStdout(), format, store.ListOptions{CaseID: caseID})
		})
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted document %s\n", args[0])
			return nil
		})
	},
}

func init() {
	documentsListCmd.Flags().String("case", "", "only documents for this case ID")
	documentsListCmd.Flags().Int("limit", 50, "maximum number of documents")
	documentsListCmd.Flags().Bool("json", false, "output as JSON")

	documentsShowCmd.Flags().String("format", "markdown", "output format: markdown, yaml, or json")

	documentsSearchCmd.Flags().Int("limit", 20, "maximum number of matches")
	documentsSearchCmd.Flags().Bool("json", false, "output as JSON")

	documentsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	documentsExportCmd.Flags().String("case", "", "only documents for this case ID")

	documentsCmd.AddCommand(documentsListCmd, documentsShowCmd, documentsSearchCmd, documentsExportCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

// withStore opens the configured database for the duration of fn.
func withStore(fn func(*store.Store) error) error {
	path := viper.GetString("database_path")
	if path == "" {
		path = "caseforge.db"
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
