package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/ai"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/config/file"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/delivery/markdown"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/fetch/localdir"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/storage/artifacts"
	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/storage/sqlite"
	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/services"
)

var (
	runArticlesDir string
	runOutputDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one digest cycle",
	Long: `Fetches candidate articles, narrows them through the selection
funnel, summarises the survivors and writes the digest.

Articles already delivered in earlier runs are skipped. Cached scores are
reused unless the scoring configuration changed since they were computed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runArticlesDir, "articles", "", "directory of candidate article files (required)")
	runCmd.Flags().StringVar(&runOutputDir, "out", ".", "directory for the generated digest")
	_ = runCmd.MarkFlagRequired("articles")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := file.LoadSettings(configPath)
	if err != nil {
		return err
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(settings.Cache.Dir)
	if err != nil {
		return fmt.Errorf("opening score cache: %w", err)
	}
	defer store.Close()

	artifactCache, err := artifacts.NewCache(filepath.Join(settings.Cache.Dir, "artifacts"))
	if err != nil {
		return fmt.Errorf("opening artifact cache: %w", err)
	}

	strategy := domain.FunnelStrategy(settings.Funnel.Strategy)
	criteria := settings.RatingCriteria()

	var embedder *services.Embedder
	if strategy.UsesSimilarity() {
		embeddingService, err := ai.CreateAndValidateEmbeddingService(settings.EmbeddingSettings())
		if err != nil {
			return fmt.Errorf("connecting embedding provider: %w", err)
		}
		if embeddingService == nil {
			return fmt.Errorf("%w: embedding provider %s is not configured (missing API key?)",
				domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
		}
		defer embeddingService.Close()

		embedder, err = services.NewEmbedder(ctx, embeddingService, settings.Query)
		if err != nil {
			return fmt.Errorf("preparing query embedding: %w", err)
		}
	}

	var rater *services.Rater
	if strategy.UsesRating() {
		systemPrompt, err := prompts.Load(file.PromptRatingSystem)
		if err != nil {
			return err
		}
		tmpl, err := prompts.RatingTemplate(criteria)
		if err != nil {
			return err
		}
		ratingClient, err := newRoleClient(settings, settings.RatingSettings(systemPrompt), tmpl)
		if err != nil {
			return fmt.Errorf("configuring rating client: %w", err)
		}
		defer ratingClient.Close()
		rater = services.NewRater(ratingClient, criteria)
	}

	summarySystem, err := prompts.Load(file.PromptSummarySystem)
	if err != nil {
		return err
	}
	summaryTmpl, err := prompts.Load(file.PromptSummary)
	if err != nil {
		return err
	}
	summaryClient, err := newRoleClient(settings, settings.SummarySettings(summarySystem), summaryTmpl)
	if err != nil {
		return fmt.Errorf("configuring summary client: %w", err)
	}
	defer summaryClient.Close()

	summarizer, err := services.NewSummarizer(summaryClient)
	if err != nil {
		return err
	}

	funnel, err := services.NewFunnel(store, embedder, rater, services.FunnelConfig{
		Strategy:    strategy,
		TopK:        settings.Funnel.TopK,
		MaxSelected: settings.Funnel.MaxSelected,
		Workers:     settings.Funnel.Workers,
	})
	if err != nil {
		return err
	}

	fetcher, err := localdir.NewFetcher(runArticlesDir)
	if err != nil {
		return err
	}

	deliverer, err := markdown.NewDeliverer(runOutputDir)
	if err != nil {
		return err
	}

	pipeline, err := services.NewPipeline(fetcher, store, artifactCache, funnel, summarizer, deliverer, services.PipelineConfig{
		ScoringConfig:       settings.ScoringConfig(),
		CacheTTL:            settings.CacheTTL(),
		ArtifactBudgetBytes: settings.Cache.ArtifactBudgetMB << 20,
	})
	if err != nil {
		return err
	}

	if err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("digest run failed: %w", err)
	}

	cmd.Println("Digest run complete.")
	return nil
}

// newRoleClient builds the request client for one LLM role, sharing the
// batch settings across roles.
func newRoleClient(settings *file.Settings, llm domain.LLMSettings, tmpl string) (*ai.Client, error) {
	return ai.NewClient(ai.Config{
		Settings:          llm,
		UserTemplate:      tmpl,
		ThrottlePerSecond: llm.RequestsPerSecond,
		Batch: ai.BatchConfig{
			Disabled:        !settings.Batch.Enabled,
			MaxWait:         settings.MaxWait(),
			PollInterval:    settings.PollInterval(),
			FallbackOnError: settings.Batch.FallbackOnError,
		},
	})
}
