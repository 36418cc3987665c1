package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"docingest/config"
	"docingest/internal/adapter/chunker"
	"docingest/internal/adapter/embedding"
	"docingest/internal/adapter/extract"
	"docingest/internal/domain"
	"docingest/internal/port"
	"docingest/internal/usecase"
)

func main() {
	file := flag.String("f", "", "Document to chunk")
	dir := flag.String("dir", ".", "Directory holding docingest.yaml")
	embed := flag.Bool("embed", false, "Embed sentences for the semantic strategy (calls the configured provider)")
	flag.Parse()

	if *file == "" {
		fmt.Println("Usage: go run ./cmd/chunkbench -f report.pdf [-embed]")
		fmt.Println("\nReports, per strategy:")
		fmt.Println("  1. Chunk count and time taken")
		fmt.Println("  2. Chunk size distribution (min / avg / max characters)")
		fmt.Println("  3. Text coverage of the chunk spans")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	text, err := extract.New().Extract(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting text: %v\n", err)
		os.Exit(1)
	}
	extractTime := time.Since(start)

	var embedFunc chunker.EmbedFunc
	if *embed {
		embedder, err := embedding.New(embedding.Settings{
			Provider:  cfg.Embedding.Provider,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.Embedding.APIKey(),
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
			os.Exit(1)
		}
		embedFunc = usecase.EmbedFunc(context.Background(), embedder)
	}

	textLen := utf8.RuneCountInString(text)
	fmt.Println("CHUNKING BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("File:       %s\n", filepath.Base(*file))
	fmt.Printf("Characters: %d\n", textLen)
	fmt.Printf("Extracted:  %s\n", extractTime.Round(time.Microsecond))
	fmt.Println()

	ch := cfg.Chunking
	threshold := ch.SemanticThreshold
	for _, strategy := range []domain.Strategy{domain.StrategyFixed, domain.StrategySemantic, domain.StrategyHierarchical} {
		c, err := chunker.New(chunker.Options{
			Strategy:            strategy,
			ChunkSize:           ch.ChunkSize,
			ChunkOverlap:        ch.ChunkOverlap,
			ParentChunkSize:     ch.ParentChunkSize,
			ChildChunkSize:      ch.ChildChunkSize,
			SimilarityThreshold: &threshold,
			MinChunkSize:        ch.MinChunkSize,
			EmbedFunc:           embedFunc,
		})
		if err != nil {
			fmt.Printf("%-13s config error: %v\n\n", strategy, err)
			continue
		}

		start := time.Now()
		chunks := c.Chunk(text, domain.NewMetadata())
		elapsed := time.Since(start)

		report(c, chunks, elapsed, textLen)
	}
}

func report(c port.Chunker, chunks []domain.Chunk, elapsed time.Duration, textLen int) {
	fmt.Println(c)
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("  Chunks:   %d\n", len(chunks))
	fmt.Printf("  Time:     %s\n", elapsed.Round(time.Microsecond))
	if len(chunks) == 0 {
		fmt.Println()
		return
	}

	types := map[domain.ChunkType]int{}
	minLen, maxLen, total := -1, 0, 0
	covered := make([]bool, textLen)
	for _, chunk := range chunks {
		types[chunk.Type()]++
		n := utf8.RuneCountInString(chunk.Text)
		total += n
		maxLen = max(maxLen, n)
		if minLen < 0 || n < minLen {
			minLen = n
		}
		for i := max(chunk.StartChar, 0); i < min(chunk.EndChar, textLen); i++ {
			covered[i] = true
		}
	}
	coveredCount := 0
	for _, c := range covered {
		if c {
			coveredCount++
		}
	}

	fmt.Printf("  Size:     min %d / avg %.1f / max %d\n", minLen, float64(total)/float64(len(chunks)), maxLen)
	fmt.Printf("  Coverage: %.1f%%\n", 100*float64(coveredCount)/float64(max(textLen, 1)))
	typeKeys := make([]domain.ChunkType, 0, len(types))
	for t := range types {
		typeKeys = append(typeKeys, t)
	}
	slices.Sort(typeKeys)
	for _, t := range typeKeys {
		fmt.Printf("  %-22s %d\n", t+":", types[t])
	}
	fmt.Println()
}
