package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ragsearch/internal/pipeline"
	"github.com/ziadkadry99/ragsearch/internal/progress"
)

var (
	ingestCompany string
	ingestForce   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest and index documents from a directory",
	Long: `Walks the given directory (default: the documents directory under
data_dir), converts each matching file to Markdown, chunks it, embeds
the chunks, and writes the vector index. Documents whose content was
already indexed are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		dir := app.paths.DocumentsDir()
		if len(args) == 1 {
			dir = args[0]
		}

		report, err := app.pipeline.ProcessDocuments(cmd.Context(), pipeline.BatchRequest{
			Dir:          dir,
			Include:      app.cfg.Ingest.Include,
			CompanyName:  ingestCompany,
			SkipExisting: app.cfg.Ingest.SkipExisting && !ingestForce,
			Reporter:     progress.NewReporter(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d, skipped %d, failed %d\n",
			report.Indexed, report.Skipped, report.Failed)
		for _, out := range report.Outcomes {
			if out.Status == pipeline.StatusFailed {
				fmt.Printf("  failed %s: %s\n", out.DisplayName, out.Detail)
			}
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d documents failed", report.Failed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCompany, "company", "", "company name tag for all ingested documents")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "reprocess documents even when artifacts exist")
	rootCmd.AddCommand(ingestCmd)
}
