package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-rematcher/internal/ingestion"
	"github.com/jonathan/job-rematcher/internal/observability"
	"github.com/jonathan/job-rematcher/internal/parsing"
)

var (
	parseCVFile string
	parseJSON   bool
)

var parseCVCmd = &cobra.Command{
	Use:   "parse-cv",
	Short: "Parse a CV file into a structured profile without queueing anything",
	RunE:  runParseCV,
}

func init() {
	parseCVCmd.Flags().StringVar(&parseCVFile, "cv-file", "", "Path to the CV text or HTML file (required)")
	parseCVCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the profile as JSON")
	_ = parseCVCmd.MarkFlagRequired("cv-file")
	rootCmd.AddCommand(parseCVCmd)
}

func runParseCV(cmd *cobra.Command, _ []string) error {
	cvText, meta, err := ingestion.IngestFromFile(parseCVFile)
	if err != nil {
		return fmt.Errorf("failed to read CV: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Read %s: %d characters, %s, sha256 %s\n", meta.Source, meta.Chars, meta.Format, meta.Hash[:12])

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	profile, err := parsing.NewCVParser(client).ParseCV(ctx, cvText)
	if err != nil {
		return err
	}

	if parseJSON {
		return printJSON(cmd.OutOrStdout(), profile)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(profile)
	return nil
}
