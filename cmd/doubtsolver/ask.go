package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"doubtsolver/internal/generate"
	"doubtsolver/internal/pipeline"
	"doubtsolver/internal/synth"
	"doubtsolver/internal/vecindex"
)

var (
	askGrade    string
	askSubject  string
	askTopK     int
	askIndexDir string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed corpus",
	Long: `Ask a question and get an answer grounded in the indexed textbook
corpus, with page citations. Use --grade and --subject to restrict which
textbooks are consulted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askGrade, "grade", "", "restrict retrieval to one grade, e.g. 10")
	askCmd.Flags().StringVar(&askSubject, "subject", "", "restrict retrieval to one subject, e.g. Science")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (overrides config)")
	askCmd.Flags().StringVar(&askIndexDir, "index", "", "index directory (overrides config)")
}

func runAsk(cmd *cobra.Command, question string) error {
	target := cfg.IndexDir
	if askIndexDir != "" {
		target = askIndexDir
	}
	embedder, err := newEmbedder()
	if err != nil {
		return err
	}
	ix, err := vecindex.Load(target, embedder)
	if err != nil {
		if errors.Is(err, vecindex.ErrNotFound) {
			return fmt.Errorf("no index found in %s; run 'doubtsolver index' first", target)
		}
		return err
	}

	gen, err := newGenerator()
	if err != nil {
		return err
	}
	topK := cfg.Retrieval.TopK
	if askTopK > 0 {
		topK = askTopK
	}
	p := pipeline.New(ix, newEmbedder, synth.New(gen, generate.Options{
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
	}), pipeline.Options{TopK: topK, Overfetch: cfg.Retrieval.OverfetchFactor})

	filters := make(map[string]string)
	if askGrade != "" {
		filters["grade"] = askGrade
	}
	if askSubject != "" {
		filters["subject"] = askSubject
	}

	resp, err := p.ProcessQuery(cmd.Context(), question, filters)
	if err != nil {
		return err
	}

	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("%s %s\n\n", boldCyan("Q:"), question)
	fmt.Println(resp.Answer)

	if verbose {
		fmt.Println()
		color.Blue("language: %s", resp.Language)
		for i, c := range resp.Chunks {
			color.Blue("chunk %d: %s p.%d score=%.4f", i+1, c.SourceID, c.Page, resp.Scores[i])
		}
		color.Blue("latency: total=%s retrieve=%s synthesize=%s",
			resp.Latencies["total"].Round(time.Millisecond),
			resp.Latencies["retrieve"].Round(time.Millisecond),
			resp.Latencies["synthesize"].Round(time.Millisecond))
	}
	return nil
}
