// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/capacity-news/internal/outlet"
	"github.com/pdiddy/capacity-news/internal/pipeline"
	"github.com/pdiddy/capacity-news/pkg/types"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultDataFile = "capacity-news/capacity_news.json"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover, classify, and persist capacity news articles",
	Long: `Run executes one full pipeline pass: every configured outlet is
scanned back to the backfill cutoff, new articles are parsed and
classified, and the results are merged into the JSON corpus under
retention. Outlets run concurrently; a failing outlet never aborts
the others.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().Int("months", 12, "backfill window in months")
	runCmd.Flags().Int("retention-years", 5, "drop articles older than this many years")
	runCmd.Flags().Int("max-pages", 20, "maximum listing pages per outlet")
	runCmd.Flags().Int("max-articles", 0, "maximum new articles across all outlets (0 = unlimited)")
	runCmd.Flags().Bool("reprocess-existing", false, "re-fetch and re-classify persisted articles before merging")
	runCmd.Flags().StringArray("reprocess-outlet", nil, "limit reprocessing to this outlet (repeatable)")
	runCmd.Flags().String("data-file", defaultDataFile, "path of the persisted JSON corpus")
	runCmd.Flags().String("index-dir", "", "rebuild the query index here after the run (empty = skip)")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout per attempt (default 30s)")
	runCmd.Flags().String("report-file", "", "write a YAML run report to this path")
	runCmd.Flags().String("sanity-token", "", "Sanity content API token (default: .secrets/sanity-api-token)")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	months, _ := cmd.Flags().GetInt("months")
	retentionYears, _ := cmd.Flags().GetInt("retention-years")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	maxArticles, _ := cmd.Flags().GetInt("max-articles")
	reprocess, _ := cmd.Flags().GetBool("reprocess-existing")
	reprocessOutlets, _ := cmd.Flags().GetStringArray("reprocess-outlet")
	reportFile, _ := cmd.Flags().GetString("report-file")
	token, _ := cmd.Flags().GetString("sanity-token")

	dataFile, _ := cmd.Flags().GetString("data-file")
	if !cmd.Flags().Changed("data-file") {
		if v := viper.GetString("corpus.data_file"); v != "" {
			dataFile = v
		}
	}
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if !cmd.Flags().Changed("index-dir") {
		if v := viper.GetString("index.index_dir"); v != "" {
			indexDir = v
		}
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	cfg := types.PipelineConfig{
		Discovery: types.DiscoveryConfig{
			HTTPConfig:     types.HTTPConfig{Timeout: timeout},
			BackfillMonths: months,
			MaxPages:       maxPages,
			MaxArticles:    maxArticles,
		},
		Corpus: types.CorpusConfig{
			DataFile:       dataFile,
			RetentionYears: retentionYears,
		},
		Index: types.IndexConfig{
			IndexDir: indexDir,
		},
		Reprocess: types.ReprocessConfig{
			Enabled: reprocess,
			Outlets: reprocessOutlets,
		},
		ReportFile: reportFile,
	}

	fetch := &outlet.Fetcher{
		Client: &http.Client{Timeout: timeout},
	}
	registry := outlet.NewRegistry(
		outlet.NewFiercePharma(fetch, os.Stdout),
		outlet.NewBioProcessIntl(fetch, os.Stdout),
		outlet.NewPharmaCommerce(fetch, os.Stdout, secretDefault("sanity-api-token", token)),
	)

	return pipeline.New(cfg, registry, os.Stdout).Run(context.Background())
}
