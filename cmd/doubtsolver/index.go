package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/extract"
	"doubtsolver/internal/ingest"
)

var (
	corpusDir string
	indexDir  string
	noOCR     bool
	workers   int
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the PDF corpus",
	Long: `Walk the corpus directory, extract text from every PDF (falling back
to OCR for scanned pages), chunk it, and write the vector index. Documents
that cannot be read are logged and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd)
	},
}

func init() {
	indexCmd.Flags().StringVar(&corpusDir, "corpus", "", "corpus directory (overrides config)")
	indexCmd.Flags().StringVar(&indexDir, "index", "", "index directory (overrides config)")
	indexCmd.Flags().BoolVar(&noOCR, "no-ocr", false, "skip the OCR fallback for scanned pages")
	indexCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent document extractions")
}

func runIndex(cmd *cobra.Command) error {
	corpus := cfg.CorpusDir
	if corpusDir != "" {
		corpus = corpusDir
	}
	target := cfg.IndexDir
	if indexDir != "" {
		target = indexDir
	}

	var ocr extract.OCREngine
	if !noOCR {
		ocr = extract.NewTesseract(cfg.OCR.Languages)
	}
	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	runner := ingest.NewRunner(
		extract.New(cfg.OCR.MinTextLen, ocr),
		chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap),
		embedder,
		workers,
	)

	res, err := runner.Run(cmd.Context(), corpus, target)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %d documents (%d failed), %d chunks in %s\n",
		bold("Indexed:"), res.Documents, res.Failed, res.Chunks, res.Duration.Round(time.Millisecond))
	if res.IndexPath == "" {
		color.Yellow("No chunks extracted; no index was written.")
		return nil
	}
	fmt.Printf("%s %s\n", bold("Index:"), res.IndexPath)
	return nil
}
