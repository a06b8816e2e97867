package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/zhagnzhenfei/industry-assistant/internal/config"
	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	"github.com/zhagnzhenfei/industry-assistant/internal/ingest"
	"github.com/zhagnzhenfei/industry-assistant/internal/query"
	"github.com/zhagnzhenfei/industry-assistant/internal/rerank"
	"github.com/zhagnzhenfei/industry-assistant/internal/search"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
	"github.com/zhagnzhenfei/industry-assistant/internal/synonym"
	"github.com/zhagnzhenfei/industry-assistant/internal/termweight"
)

// engineParts bundles everything a command needs to index and query.
type engineParts struct {
	engine   *search.Engine
	ingestor *ingest.Ingestor
	store    *docstore.LocalStore
	seg      *segment.Segmenter
	builder  *query.Builder
	cleanup  func()
}

// buildEngine assembles the retrieval engine from configuration.
func buildEngine(ctx context.Context, cfg *config.Config) (*engineParts, error) {
	seg := segment.Default()
	tw, err := termweight.New(seg)
	if err != nil {
		return nil, fmt.Errorf("load term weight tables: %w", err)
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	synOpts := []synonym.Option{
		synonym.WithReloadPolicy(synonym.ReloadPolicy{
			MinLookups:  cfg.Synonyms.MinLookups,
			MinInterval: cfg.Synonyms.MinInterval,
		}),
	}
	if cfg.Synonyms.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Synonyms.RedisAddr})
		cleanups = append(cleanups, func() { _ = client.Close() })
		synOpts = append(synOpts, synonym.WithSource(synonym.NewRedisSource(client, cfg.Synonyms.RedisKey)))
	}
	syn, err := synonym.NewExpander(synOpts...)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("load synonym dictionary: %w", err)
	}
	if cfg.Synonyms.File != "" {
		src := synonym.NewFileSource(cfg.Synonyms.File)
		watchCtx, cancel := context.WithCancel(context.Background())
		cleanups = append(cleanups, cancel)
		go func() {
			if err := src.Watch(watchCtx, syn, slog.Default()); err != nil && watchCtx.Err() == nil {
				slog.Warn("synonym file watch stopped", "error", err)
			}
		}()
	}

	builder := query.NewBuilder(seg, tw, syn)

	emb, err := embed.New(ctx, cfg.Embeddings)
	if err != nil {
		cleanup()
		return nil, err
	}
	cleanups = append(cleanups, func() { _ = emb.Close() })

	store, err := docstore.NewLocal()
	if err != nil {
		cleanup()
		return nil, err
	}
	cleanups = append(cleanups, func() { _ = store.Close() })

	engineOpts := []search.EngineOption{
		search.WithFusionWeights(cfg.Search.LexicalWeight, cfg.Search.DenseWeight),
		search.WithPolicy(search.Policy{
			InitialMinMatch:        cfg.Search.InitialMinMatch,
			RelaxedMinMatch:        cfg.Search.RelaxedMinMatch,
			InitialSimilarityFloor: cfg.Search.InitialSimilarityFloor,
			RelaxedSimilarityFloor: cfg.Search.RelaxedSimilarityFloor,
			MaxRelaxations:         1,
		}),
		search.WithLogger(slog.Default()),
	}
	if cfg.Rerank.Enabled {
		rr, err := rerank.NewHTTPReranker(cfg.Rerank.Client)
		if err != nil {
			cleanup()
			return nil, err
		}
		engineOpts = append(engineOpts, search.WithReranker(rr))
	}

	engine, err := search.NewEngine(store, emb, builder, seg, engineOpts...)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &engineParts{
		engine:   engine,
		ingestor: ingest.New(seg, emb, store, slog.Default()),
		store:    store,
		seg:      seg,
		builder:  builder,
		cleanup:  cleanup,
	}, nil
}

// loadChunks reads and indexes a JSONL corpus file.
func (p *engineParts) loadChunks(ctx context.Context, path, index string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open chunks file: %w", err)
	}
	defer f.Close()

	docs, err := ingest.ReadJSONL(f)
	if err != nil {
		return 0, err
	}
	return p.ingestor.Ingest(ctx, index, docs)
}
