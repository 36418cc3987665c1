package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"docingest/internal/adapter/extract"
	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/port"
	"docingest/internal/usecase"
)

var (
	chunkStrategy string
	chunkSize     int
	chunkOverlap  int
	chunkEmbed    bool
	chunkJSON     bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Show how a file would be chunked",
	Long: `Extract and chunk a file without embedding or storing the chunks.
Semantic chunking packs sentences by size unless --embed is given.

Examples:
  docingest chunk report.pdf
  docingest chunk notes.md --strategy semantic --embed --json`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	addChunkingFlags(chunkCmd, &chunkStrategy, &chunkSize, &chunkOverlap)
	chunkCmd.Flags().BoolVar(&chunkEmbed, "embed", false, "embed sentences for semantic chunking")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output as JSON")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyChunkingFlags(cfg, chunkStrategy, chunkSize, chunkOverlap); err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	var embedder port.Embedder
	if chunkEmbed {
		embedder, err = newEmbedder(cfg)
		if err != nil {
			return err
		}
	}

	ingestUC := usecase.NewIngestUseCase(nil, embedder, extract.New(), nil, cfg, logger.Default())
	chunks, err := ingestUC.Chunk(cmd.Context(), path)
	if err != nil {
		return err
	}

	if chunkJSON {
		return printJSON(chunks)
	}

	fmt.Printf("%s: %d chunks (%s)\n", filepath.Base(path), len(chunks), cfg.Chunking.Strategy)
	for _, c := range chunks {
		label := string(c.Type())
		if c.Type() == domain.ChunkHierarchicalChild {
			label = "  " + label
		}
		text := truncateRunes(strings.ReplaceAll(c.Text, "\n", " "), 80)
		fmt.Printf("[%d] %s %d-%d: %s\n", c.Index(), label, c.StartChar, c.EndChar, text)
	}
	return nil
}

// truncateRunes cuts s to n runes and marks the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
