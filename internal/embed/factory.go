package embed

import (
	"context"
	"fmt"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// New builds the configured embedder, wrapped with a cache when
// enabled.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", "static":
		e = NewStaticEmbedder()
	case "openai":
		e, err = NewOpenAIEmbedder(cfg)
	case "ollama":
		e, err = NewOllamaEmbedder(ctx, cfg)
	default:
		return nil, errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("unknown embed provider %q", cfg.Provider), nil).
			WithSuggestion(`use one of "openai", "ollama", "static"`)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
