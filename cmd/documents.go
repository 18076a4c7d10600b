package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		docs, err := app.catalog.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents indexed. Run `ragsearch ingest` first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOMPANY\tCHUNKS\tHASH")
		for _, d := range docs {
			hash := d.ContentHash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.DisplayName, d.CompanyName, d.ChunkCount, hash)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}
