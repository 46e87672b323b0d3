package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/isaac-evs/side-b/internal/config"
	"github.com/isaac-evs/side-b/internal/embeddings"
	"github.com/isaac-evs/side-b/internal/embeddings/hash"
	"github.com/isaac-evs/side-b/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates the embedding provider named by cfg.EmbedProvider.
// For Ollama the model is pulled when EMBED_PULL is set or the model is missing.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (embeddings.Provider, error) {
	switch cfg.EmbedProvider {
	case config.EmbedHash:
		return hash.New(cfg.EmbedDimensions), nil
	case config.EmbedOllama:
		p := ollama.New(cfg.OllamaURL, cfg.EmbedModel, 0)
		warmupCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
		defer cancel()
		ensureModel(warmupCtx, p, cfg, log)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}

// ensureModel never fails startup: an unreachable Ollama only degrades vector features.
func ensureModel(ctx context.Context, p *ollama.Provider, cfg *config.Config, log zerolog.Logger) {
	l := log.With().Str("provider", cfg.EmbedProvider).Str("model", cfg.EmbedModel).Logger()
	if cfg.EmbedPull || p.HealthPing(ctx) != nil {
		start := time.Now()
		if err := p.Pull(ctx); err != nil {
			l.Warn().Err(err).Msg("embedding model pull failed")
			return
		}
		l.Info().Dur("took", time.Since(start)).Msg("embedding model pulled")
	}
	if vec, err := p.Embed(ctx, "factory-warmup-check"); err != nil || len(vec) == 0 {
		l.Warn().Err(err).Int("vec_len", len(vec)).Msg("embedding provider warmup failed")
		return
	}
	l.Debug().Msg("embedding provider warmup completed")
}
