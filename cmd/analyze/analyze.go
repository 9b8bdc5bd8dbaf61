package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobtracker/internal/analyzer"
	"jobtracker/internal/ingest"
)

type analyzeOptions struct {
	resume  string
	job     string
	asJSON  bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze --resume FILE --job FILE|URL",
		Short: "Score a resume against a job description",
		Long: "Extracts technical keywords from a resume and a job description, " +
			"reports which of the job's keywords the resume covers and suggests improvements. " +
			"The resume may be plain text, markdown, PDF or DOCX. The job description may be a file or an http(s) URL.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.resume, "resume", "r", "", "Path to the resume file")
	cmd.Flags().StringVarP(&opts.job, "job", "j", "", "Path or http(s) URL of the job description")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", ingest.DefaultFetchTimeout, "Timeout for fetching a job description URL")
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, opts *analyzeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	resumeText, err := readDocument(opts.resume)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	var jobText string
	if isURL(opts.job) {
		fetcher := ingest.NewFetcher(opts.timeout, ingest.DefaultMaxFetchSize)
		jobText, err = fetcher.FetchJobDescription(ctx, opts.job)
	} else {
		jobText, err = readDocument(opts.job)
	}
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}

	if strings.TrimSpace(resumeText) == "" {
		return errors.New("resume is empty")
	}
	if strings.TrimSpace(jobText) == "" {
		return errors.New("job description is empty")
	}

	report := analyzer.Analyze(resumeText, jobText)
	if opts.asJSON {
		return writeJSON(out, report)
	}
	return writeText(out, report)
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	// An empty content type lets the extension pick the format.
	return ingest.ExtractText(filepath.Base(path), "", data)
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func writeJSON(out io.Writer, report analyzer.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		analyzer.Report
		Band analyzer.Band `json:"band"`
	}{report, report.Band()})
}

func writeText(out io.Writer, report analyzer.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Match: %d%% (%s)\n", report.MatchPercentage, report.Band())
	fmt.Fprintf(&b, "Matched keywords: %s\n", joinOrNone(report.MatchedKeywords))
	fmt.Fprintf(&b, "Missing keywords: %s\n", joinOrNone(report.MissingKeywords))
	b.WriteString("\nSuggestions:\n")
	for _, s := range report.Suggestions {
		fmt.Fprintf(&b, "  - %s\n", s)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func joinOrNone(keywords []string) string {
	if len(keywords) == 0 {
		return "(none)"
	}
	return strings.Join(keywords, ", ")
}
