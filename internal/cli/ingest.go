package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docingest/config"
	"docingest/internal/adapter/extract"
	"docingest/internal/adapter/fs"
	"docingest/internal/domain"
	"docingest/internal/logger"
	"docingest/internal/port"
	"docingest/internal/usecase"
)

var (
	ingestStrategy   string
	ingestChunkSize  int
	ingestOverlap    int
	ingestCollection string
	ingestWorkers    int
	ingestRebuild    bool
	ingestJSON       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk, embed and store a file or directory",
	Long: `Ingest a document, or every supported document under a directory.
Each file is copied into the upload directory, its text is extracted and
chunked, and the chunks are embedded and upserted into the collection.

Examples:
  docingest ingest report.pdf
  docingest ingest ./docs --strategy hierarchical
  docingest ingest notes.md --strategy semantic --collection notes --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	addChunkingFlags(ingestCmd, &ingestStrategy, &ingestChunkSize, &ingestOverlap)
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default from config)")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "files processed in parallel (default from config)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the local store when its embedding settings changed")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output as JSON")
}

// addChunkingFlags registers the flags that override the chunking config.
func addChunkingFlags(cmd *cobra.Command, strategy *string, size, overlap *int) {
	cmd.Flags().StringVarP(strategy, "strategy", "s", "", "chunking strategy: fixed, semantic, hierarchical")
	cmd.Flags().IntVar(size, "chunk-size", 0, "chunk size in characters (default from config)")
	cmd.Flags().IntVar(overlap, "chunk-overlap", -1, "chunk overlap in characters (default from config)")
}

func applyChunkingFlags(cfg *config.Config, strategy string, size, overlap int) error {
	if strategy != "" {
		cfg.Chunking.Strategy = strategy
	}
	if size > 0 {
		cfg.Chunking.ChunkSize = size
	}
	if overlap >= 0 {
		cfg.Chunking.ChunkOverlap = overlap
	}
	return cfg.Validate()
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := applyChunkingFlags(cfg, ingestStrategy, ingestChunkSize, ingestOverlap); err != nil {
		return err
	}
	if ingestCollection != "" {
		cfg.VectorStore.Collection = ingestCollection
	}
	if ingestWorkers > 0 {
		cfg.Upload.Workers = ingestWorkers
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, ingestRebuild)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	uploads := fs.NewUploadStore(cfg.Upload.Dir, cfg.Upload.MaxFileSize())
	ingestUC := usecase.NewIngestUseCase(st, embedder, extract.New(), uploads, cfg, logger.Default())

	if !info.IsDir() {
		if !cfg.Upload.Allows(path) {
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
		}
		result, err := ingestUC.Ingest(ctx, path)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if ingestJSON {
			return printJSON(result)
		}
		printIngestResult(result)
		return nil
	}

	return ingestDir(ctx, ingestUC, cfg, path)
}

func ingestDir(ctx context.Context, ingestUC *usecase.IngestUseCase, cfg *config.Config, path string) error {
	walker := fs.NewWalker(fs.IncludesFor(cfg.Upload.AllowedExtensions), cfg.Upload.Excludes)
	files, err := walker.Walk(path)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No supported files found in %s\n", path)
		return nil
	}

	fmt.Fprintf(os.Stderr, "Ingesting %d files from %s...\n", len(files), path)

	var (
		barMu     sync.Mutex
		processed int
		startTime = time.Now()
	)
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	onDone := func(string, error) {
		barMu.Lock()
		defer barMu.Unlock()

		processed++
		bar.Set(processed)

		elapsed := time.Since(startTime)
		rate := float64(processed) / elapsed.Seconds()
		if remaining := len(files) - processed; rate > 0 && remaining > 0 {
			eta := time.Duration(float64(remaining)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
		}
	}

	result, err := ingestUC.IngestDir(ctx, path, staticWalker(files), onDone)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		return printJSON(result)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files ingested: %d\n", len(result.Ingested))
	fmt.Printf("  Files failed:   %d\n", len(result.Failed))
	fmt.Printf("  Chunks stored:  %d\n", result.Chunks)
	fmt.Printf("  Collection:     %s\n", cfg.VectorStore.Collection)
	fmt.Printf("  Took:           %s\n", formatDuration(time.Since(startTime)))

	if len(result.Failed) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, f := range result.Failed {
			fmt.Printf("  - %s: %s\n", f.Path, f.Err)
		}
	}
	return nil
}

// staticWalker replays a file list that was already walked.
type staticWalker []port.FileInfo

func (w staticWalker) Walk(string) ([]port.FileInfo, error) {
	return w, nil
}

func printIngestResult(r *domain.IngestResult) {
	fmt.Printf("Ingested %s\n", r.Filename)
	fmt.Printf("  File ID:    %s\n", r.FileID)
	fmt.Printf("  Size:       %d bytes\n", r.FileSize)
	fmt.Printf("  Chunks:     %d (%s)\n", r.TotalChunks, r.Strategy)
	fmt.Printf("  Embedding:  %s\n", r.EmbeddingModel)
	fmt.Printf("  Collection: %s\n", r.Collection)

	for i, p := range r.Preview {
		fmt.Printf("\n--- [%d] chars %d-%d ---\n%s\n", i+1, p.StartChar, p.EndChar, p.Text)
	}
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
