package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docingest/internal/adapter/retriever"
	"docingest/internal/usecase"
)

var (
	searchQuery      string
	searchLimit      int
	searchCollection string
	searchFilters    map[string]string
	searchMinScore   float64
	searchMMR        bool
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a collection",
	Long: `Embed a query and return the closest stored chunks.

Examples:
  docingest search -q "quarterly revenue"
  docingest search -q "termination clause" --filter filename=contract.pdf -k 10 --json
  docingest search -q "revenue" --mmr`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (default from config)")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (default from config)")
	searchCmd.Flags().StringToStringVar(&searchFilters, "filter", nil, "payload filters as key=value")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", -1, "drop results scoring below this (default from config)")
	searchCmd.Flags().BoolVar(&searchMMR, "mmr", false, "diversify results with MMR")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	collection := cfg.VectorStore.Collection
	if searchCollection != "" {
		collection = searchCollection
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer st.Close()

	limit := cfg.Search.Limit
	if searchLimit > 0 {
		limit = searchLimit
	}
	minScore := cfg.Search.MinScore
	if searchMinScore >= 0 {
		minScore = searchMinScore
	}

	searchUC := usecase.NewSearchUseCase(st, embedder, minScore)
	if searchMMR || cfg.Search.MMR {
		searchUC.WithReranker(retriever.NewMMRReranker(cfg.Search.MMRLambda, cfg.Search.DedupJaccard), cfg.Search.Candidates)
	}
	hits, err := searchUC.Search(cmd.Context(), collection, searchQuery, limit, searchFilters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(hits)
	}
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(hits), searchQuery)
	for i, h := range hits {
		fmt.Printf("--- [%d] %v chars %v-%v (score: %.3f) ---\n",
			i+1, h.Payload["filename"], h.Payload["start_char"], h.Payload["end_char"], h.Score)
		// Truncate long text for display
		text, _ := h.Payload["text"].(string)
		fmt.Println(strings.TrimSpace(truncateRunes(text, 500)))
		fmt.Println()
	}
	return nil
}
