package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bhavy-official/RevLens/internal/app"
	"github.com/Bhavy-official/RevLens/internal/config"
	"github.com/Bhavy-official/RevLens/internal/logging"
	"github.com/Bhavy-official/RevLens/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "revlens",
		Short:         "Review scraping, sentiment scoring, and issue extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newIngestCommand(),
		newSentimentCommand(),
		newSummarizeCommand(),
		newIssuesCommand(),
		newCleanCommand(),
	)

	return root
}

// buildApp loads config and wires the application for one command run.
func buildApp() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API and the periodic refresh job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			return application.Serve(cmd.Context())
		},
	}
}

func newIngestCommand() *cobra.Command {
	var (
		pid         string
		name        string
		marketplace string
		pages       int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scrape a product's reviews and store the clean ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			result, err := application.Pipeline().IngestFromSource(cmd.Context(), pid, name, marketplace, pages)
			if err != nil {
				return err
			}

			fmt.Printf("Saved %d reviews (%d rejected, %d duplicates)\n",
				result.Saved, result.Rejected, result.Duplicates)
			return nil
		},
	}

	cmd.Flags().StringVar(&pid, "pid", "", "marketplace product id")
	cmd.Flags().StringVar(&name, "name", "", "product display name")
	cmd.Flags().StringVar(&marketplace, "marketplace", "", "configured marketplace to scrape (default: first)")
	cmd.Flags().IntVar(&pages, "pages", 0, "maximum review pages to fetch (default: configured)")
	_ = cmd.MarkFlagRequired("pid")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newSentimentCommand() *cobra.Command {
	var (
		pid     string
		all     bool
		rescore bool
	)

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score stored reviews through the inference service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pid == "" && !all {
				return fmt.Errorf("either --pid or --all is required")
			}

			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			ctx := cmd.Context()
			pipeline := application.Pipeline()

			pids := []string{pid}
			if all {
				products, err := pipeline.Products(ctx)
				if err != nil {
					return err
				}
				pids = pids[:0]
				for _, p := range products {
					pids = append(pids, p.PID)
				}
			}

			var updated, skipped int
			for _, id := range pids {
				result, err := pipeline.ScoreSentiments(ctx, id, rescore)
				if err != nil {
					return err
				}
				updated += result.Updated
				skipped += result.Skipped
			}

			fmt.Printf("Scored %d reviews (%d skipped)\n", updated, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&pid, "pid", "", "product id to score")
	cmd.Flags().BoolVar(&all, "all", false, "score every stored product")
	cmd.Flags().BoolVar(&rescore, "rescore", false, "re-score reviews that already have a sentiment")

	return cmd
}

func newSummarizeCommand() *cobra.Command {
	var (
		pid  string
		redo bool
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Condense a product's long reviews and store the summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			result, err := application.Pipeline().SummarizeReviews(cmd.Context(), pid, redo)
			if err != nil {
				return err
			}

			fmt.Printf("Summarized %d reviews (%d skipped)\n", result.Updated, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&pid, "pid", "", "product id to summarize")
	cmd.Flags().BoolVar(&redo, "redo", false, "rewrite summaries that already exist")
	_ = cmd.MarkFlagRequired("pid")

	return cmd
}

func newIssuesCommand() *cobra.Command {
	var (
		pid         string
		productName string
		minRating   float64
		strategy    string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Extract critical issues from low-rated reviews",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			if strategy == "" {
				strategy = application.Config().Issues.Strategy
			}

			result, err := application.Pipeline().ExtractIssues(cmd.Context(), usecase.IssueOptions{
				PID:         pid,
				ProductName: productName,
				MinRating:   minRating,
				Strategy:    strategy,
			})
			if err != nil {
				return err
			}

			text := renderExtraction(result)
			fmt.Print(text)

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Printf("Report written to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pid, "pid", "", "product id to analyze")
	cmd.Flags().StringVar(&productName, "product-name", "", "match a product by name instead of pid")
	cmd.Flags().Float64Var(&minRating, "min-rating", 3.0, "only consider reviews rated at or below this")
	cmd.Flags().StringVar(&strategy, "strategy", "", "extraction strategy: topics or frequency (default: configured)")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the report to this file")

	return cmd
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Re-normalize stored reviews and drop invalid or duplicate rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			result, err := application.Pipeline().CleanStored(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Cleaned %d reviews, deleted %d\n", result.Cleaned, result.Deleted)
			return nil
		},
	}
}

// renderExtraction formats an extraction result as the plain-text report the
// command prints and optionally writes to --out.
func renderExtraction(result usecase.ExtractionResult) string {
	var b strings.Builder

	if len(result.Phrases) > 0 {
		b.WriteString("Top recurring complaints:\n")
		for i, phrase := range result.Phrases {
			fmt.Fprintf(&b, "%d. %s (%d mentions)\n", i+1, phrase.Text, phrase.Frequency)
		}
	}

	if result.Report != nil {
		report := result.Report
		fmt.Fprintf(&b, "Analyzed %d reviews, flagged %d as critical (%d skipped)\n",
			report.TotalReviews, report.FlaggedCritical, report.Skipped)
		for i, summary := range report.Summaries {
			fmt.Fprintf(&b, "%d. %s: %d mentions, severity %.1f\n",
				i+1, summary.Topic, summary.TotalMentions, summary.AverageSeverity)
			for _, example := range summary.ExampleEvidence {
				fmt.Fprintf(&b, "   - %q\n", example)
			}
		}
		if report.Narrative != "" {
			b.WriteString("\n" + report.Narrative + "\n")
		} else if report.Digest != "" {
			b.WriteString("\n" + report.Digest + "\n")
		}
	}

	if b.Len() == 0 {
		b.WriteString("No issues found\n")
	}

	return b.String()
}
