// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/capacity-news/internal/corpus"
	"github.com/pdiddy/capacity-news/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the query index from the corpus",
	Long: `Index reads the JSON corpus and rebuilds the SQLite/FTS5 query
index from scratch. The corpus file remains the source of truth; the
index can always be regenerated.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("data-file", defaultDataFile, "path of the persisted JSON corpus")
	indexCmd.Flags().String("index-dir", "capacity-news/index", "directory holding the index database")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	dataFile, _ := cmd.Flags().GetString("data-file")
	indexDir, _ := cmd.Flags().GetString("index-dir")

	articles, err := corpus.Load(dataFile)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Fprintf(os.Stderr, "warning: corpus %s is empty\n", dataFile)
	}

	idx, err := corpus.NewIndex(types.IndexConfig{IndexDir: indexDir})
	if err != nil {
		return err
	}
	defer idx.Close()

	return idx.Rebuild(context.Background(), articles, os.Stdout)
}
