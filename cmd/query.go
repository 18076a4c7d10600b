package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ragsearch/internal/answer"
	"github.com/ziadkadry99/ragsearch/internal/retriever"
)

var (
	queryMode   string
	queryTopK   int
	queryFilter string
	sourcesOnly bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Retrieves the most relevant chunks for the question and composes a
cited answer. With --sources-only the retrieved chunks are printed
without calling the language model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		mode, err := retriever.ParseSearchMode(queryMode)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")

		sources, err := app.retriever.Search(cmd.Context(), retriever.Request{
			Query:     question,
			Mode:      mode,
			TopK:      queryTopK,
			Filter:    queryFilter,
			Overfetch: app.cfg.Retrieval.Overfetch,
		})
		if err != nil {
			return err
		}

		if sourcesOnly {
			printSources(sources)
			return nil
		}

		ans, err := app.composer.Compose(cmd.Context(), answer.Request{
			Question: question,
			Sources:  sources,
		})
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if len(ans.Citations) > 0 {
			fmt.Println("\nSources:")
			for _, c := range ans.Citations {
				loc := c.DocumentName
				if c.PageNum > 0 {
					loc = fmt.Sprintf("%s, page %d", loc, c.PageNum)
				}
				fmt.Printf("  [%d] %s\n", c.Marker, loc)
			}
		}
		return nil
	},
}

func printSources(sources []retriever.Source) {
	for i, src := range sources {
		header := fmt.Sprintf("[%d] %s", i+1, src.DocumentName)
		if len(src.SectionPath) > 0 {
			header += " | " + strings.Join(src.SectionPath, " > ")
		}
		if src.Reranked {
			header += fmt.Sprintf(" (similarity %.3f, rerank %.3f)", src.Similarity, src.RerankScore)
		} else {
			header += fmt.Sprintf(" (similarity %.3f)", src.Similarity)
		}
		fmt.Println(header)

		text := src.Text
		if len(text) > 300 {
			text = text[:300] + "..."
		}
		fmt.Println(indent(text, "    "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func init() {
	queryCmd.Flags().StringVar(&queryMode, "mode", "hybrid", "search mode: vector or hybrid")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of sources to retrieve (0 = config default)")
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "restrict to documents matching this name or company")
	queryCmd.Flags().BoolVar(&sourcesOnly, "sources-only", false, "print retrieved chunks without composing an answer")
	rootCmd.AddCommand(queryCmd)
}
