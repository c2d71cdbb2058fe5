// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/capacity-news/internal/corpus"
	"github.com/pdiddy/capacity-news/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the article index",
	Long: `Query searches the SQLite index with FTS5 full-text search over
titles and key facts, structured filters (status, outlet, event type),
or a combination of both. Rebuild the index with the index command
after a run if it was not rebuilt automatically.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("index-dir", "capacity-news/index", "directory holding the index database")
	queryCmd.Flags().String("status", "", "filter by status: PERTINENT, NEEDS_REVIEW, NOT_PERTINENT")
	queryCmd.Flags().String("outlet", "", "filter by outlet display name")
	queryCmd.Flags().String("event-type", "", "filter by event type: expansion, new_facility, construction, shutdown, outsourcing")
	queryCmd.Flags().String("text", "", "full-text search query")
	queryCmd.Flags().Int("max-results", 0, "maximum results (0 = index default)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	status, _ := cmd.Flags().GetString("status")
	outletName, _ := cmd.Flags().GetString("outlet")
	eventType, _ := cmd.Flags().GetString("event-type")
	text, _ := cmd.Flags().GetString("text")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	if text == "" && status == "" && outletName == "" && eventType == "" {
		return fmt.Errorf("query or filter required: provide search text, --status, --outlet, or --event-type")
	}

	idx, err := corpus.NewIndex(types.IndexConfig{IndexDir: indexDir})
	if err != nil {
		return err
	}
	defer idx.Close()

	results, err := idx.Query(context.Background(), corpus.QueryOptions{
		Text:       text,
		Status:     types.Status(status),
		Outlet:     outletName,
		EventType:  types.EventType(eventType),
		MaxResults: maxResults,
	})
	if err != nil {
		return err
	}

	return formatQueryOutput(results, jsonOutput)
}

func formatQueryOutput(results []types.Article, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-13s  %-50s  %-25s  %s\n",
		"Date", "Status", "Title", "Outlet", "Key facts")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for _, a := range results {
		title := a.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		outletName := a.Outlet
		if len(outletName) > 25 {
			outletName = outletName[:22] + "..."
		}
		facts := a.KeyFactsText
		if len(facts) > 40 {
			facts = facts[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10s  %-13s  %-50s  %-25s  %s\n",
			a.PublishedAt, a.Status, title, outletName, facts)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}
