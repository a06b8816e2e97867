package synonym

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"

	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// redisKey is where the shared synonym dictionary lives.
const redisKey = "ia:synonyms"

// RedisSource loads the dictionary from a shared redis instance, so
// dictionary updates reach every engine replica without a deploy.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource creates a source over an existing client. key ""
// uses the default.
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	if key == "" {
		key = redisKey
	}
	return &RedisSource{client: client, key: key}
}

// Load implements Source.
func (s *RedisSource) Load(ctx context.Context) (map[string][]string, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeSynonymSource, "fetch synonyms from redis", err).
			WithDetail("key", s.key)
	}
	var dict map[string][]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, errors.New(errors.CodeSynonymSource, "decode synonyms from redis", err).
			WithDetail("key", s.key)
	}
	return dict, nil
}

// FileSource loads the dictionary from a JSON file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) (map[string][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.New(errors.CodeSynonymSource, "read synonym file", err).
			WithDetail("path", s.path)
	}
	var dict map[string][]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, errors.New(errors.CodeSynonymSource, "decode synonym file", err).
			WithDetail("path", s.path)
	}
	return dict, nil
}

// Watch reloads the expander whenever the file changes, bypassing the
// lookup gates. Blocks until ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context, e *Expander, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(errors.CodeSynonymSource, "create file watcher", err)
	}
	defer w.Close()
	if err := w.Add(s.path); err != nil {
		return errors.New(errors.CodeSynonymSource, "watch synonym file", err).
			WithDetail("path", s.path)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			dict, err := s.Load(ctx)
			if err != nil {
				logger.Warn("synonym file reload failed", "error", err)
				continue
			}
			if dict != nil {
				e.dict.Store(&dict)
				logger.Info("synonym file reloaded", "terms", len(dict))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("synonym file watcher error", "error", err)
		}
	}
}
