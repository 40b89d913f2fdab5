package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"quickflip/internal/config"
	"quickflip/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiKey     string

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quickflip",
	Short: "QuickFlip - photo-to-listing vehicle analysis",
	Long: `QuickFlip analyzes a used vehicle from seller photos and facts.

It runs vision extraction and a search-grounded market lookup
concurrently, reconciles the results into a single vehicle profile,
prices it through an audited adjustment pipeline, scores its resale
potential, and writes ready-to-post marketplace listings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zapCfg := zap.NewProductionConfig()
		zapCfg.OutputPaths = []string{"stderr"}
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiKey != "" {
			cfg.LLM.APIKey = apiKey
		}
		if verbose {
			cfg.Logging.Debug = true
			cfg.Logging.Level = "debug"
		}

		if err := logging.Initialize(logging.Options{
			DebugMode:  cfg.Logging.Debug,
			Dir:        cfg.Logging.Dir,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "quickflip.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides config and GEMINI_API_KEY)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configCmd prints or writes the effective configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := *cfg
		if redacted.LLM.APIKey != "" {
			redacted.LLM.APIKey = "****"
		}
		out, err := yaml.Marshal(&redacted)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

// requestBudget returns the overall per-run deadline: the longest single
// call's timeout plus headroom for the local stages.
func requestBudget(cfg *config.Config) time.Duration {
	budget := cfg.GetLLMTimeout()
	if t := cfg.GetMarketTimeout(); t > budget {
		budget = t
	}
	return budget + cfg.GetListingTimeout() + 10*time.Second
}
