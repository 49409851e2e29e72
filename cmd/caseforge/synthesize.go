package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/caseforge/internal/store"
	"github.com/pdiddy/caseforge/internal/synth"
	"github.com/pdiddy/caseforge/pkg/types"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate a case study from a patient record",
	Long: `Synthesize reads a patient case record (YAML or JSON), resolves its
condition to guideline and coding knowledge, retrieves supporting literature,
and generates the case document with the configured language model.

Quick mode writes a case summary and management plan with the fast model.
Full mode writes every section plus clinical reasoning, guideline application,
and assessment tool notes with the large model.

Failures in individual generation steps do not abort the run. The document is
still produced with default content, and each substitution is listed under
its diagnostics.`,
	RunE: runSynthesize,
}

func init() {
	synthesizeCmd.Flags().String("input", "", "case record file (YAML or JSON); - reads stdin")
	synthesizeCmd.Flags().String("mode", "quick", "generation mode: quick or full")
	synthesizeCmd.Flags().String("format", "markdown", "output format: markdown, yaml, or json")
	synthesizeCmd.Flags().Bool("save", false, "save the document to the database")
	synthesizeCmd.Flags().Duration("timeout", 0, "overall deadline for the run (default from config)")
	synthesizeCmd.Flags().Bool("suppress-synthetic", false, "omit placeholder evidence from the document")
	synthesizeCmd.Flags().Bool("strict", false, "fail when no completion call succeeds")
	synthesizeCmd.MarkFlagRequired("input")

	viper.BindPFlag("timeout", synthesizeCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("suppress_synthetic", synthesizeCmd.Flags().Lookup("suppress-synthetic"))
	viper.BindPFlag("strict_availability", synthesizeCmd.Flags().Lookup("strict"))

	rootCmd.AddCommand(synthesizeCmd)
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	modeFlag, _ := cmd.Flags().GetString("mode")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")

	mode, err := types.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	c, err := readCase(input)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	// --timeout 0 means no override.
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultPipelineConfig().Timeout
	}

	p, err := synth.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	doc, err := p.Synthesize(cmd.Context(), c, mode)
	switch {
	case errors.Is(err, synth.ErrInvalidInput):
		return err
	case errors.Is(err, synth.ErrUnavailable):
		// The degraded document is still written so the run can be inspected.
		logger.Warn("no completion call succeeded", zap.Error(err))
	case err != nil:
		return err
	}

	if save {
		st, openErr := store.Open(cfg.DatabasePath)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		if saveErr := st.Save(cmd.Context(), doc); saveErr != nil {
			return saveErr
		}
		fmt.Fprintf(os.Stderr, "Saved document %s to %s\n", doc.ID, cfg.DatabasePath)
	}

	if doc.Degraded() {
		fmt.Fprintf(os.Stderr, "Document %s is degraded: %d diagnostics\n", doc.ID, len(doc.Diagnostics))
	}

	if werr := writeDocument(cmd.OutOrStdout(), doc, format); werr != nil {
		return werr
	}
	return err
}
