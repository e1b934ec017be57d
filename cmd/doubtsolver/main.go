package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"doubtsolver/internal/config"
	"doubtsolver/internal/embed"
	"doubtsolver/internal/generate"
	"doubtsolver/internal/version"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "doubtsolver",
	Short: "Doubt Solver - grounded question answering over textbook PDFs",
	Long: `Doubt Solver answers student questions from a corpus of textbook PDFs.

Run 'doubtsolver index' once to extract, chunk and vectorize the corpus,
then 'doubtsolver ask' to query it. Every answer cites the textbook pages
it was grounded on; questions the corpus cannot answer are refused rather
than guessed.`,
	Version: version.Full(),
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Doubt Solver %s\n", version.Full())
		buildInfo := version.GetBuildInfo()

		if buildInfo.GitCommit != "unknown" {
			fmt.Printf("Git commit: %s\n", buildInfo.GitCommit)
		}
		if buildInfo.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", buildInfo.BuildDate)
		}
		fmt.Printf("Go version: %s\n", buildInfo.GoVersion)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
}

// newEmbedder builds the embedding function the config selects. The same
// construction is used for indexing and for querying; the index store
// rejects a mismatch at load time.
func newEmbedder() (embed.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf":
		return embed.NewTFIDF(cfg.Embedder.Dims), nil
	case "ollama":
		return embed.NewOllama(cfg.Embedder.Ollama.BaseURL, cfg.Embedder.Ollama.Model, cfg.Embedder.Dims), nil
	default:
		return nil, fmt.Errorf("main: unknown embedder type %q", cfg.Embedder.Type)
	}
}

// newGenerator builds the answer-generation backend, or nil when none is
// configured. A nil backend degrades answers to an explicit unavailable
// message instead of failing.
func newGenerator() (generate.Generator, error) {
	switch cfg.Generator.Type {
	case "":
		return nil, nil
	case "ollama":
		return generate.NewOllama(cfg.Generator.BaseURL, cfg.Generator.Model), nil
	default:
		return nil, fmt.Errorf("main: unknown generator type %q", cfg.Generator.Type)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
