package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ragsearch/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragsearch",
	Short: "Retrieval-augmented question answering over your documents",
	Long: `ragsearch ingests documents into a content-addressed store, indexes
them with embedding vectors, and answers questions grounded in the
indexed text with citations back to the source pages.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
