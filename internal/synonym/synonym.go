// Package synonym expands query terms with synonyms.
//
// Chinese terms resolve against a dictionary held behind an atomic
// pointer, so lookups never block while a new dictionary is swapped
// in. The dictionary starts from the embedded table and can be
// refreshed from a shared source such as redis. Latin terms resolve
// against the embedded English thesaurus instead.
package synonym

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zhagnzhenfei/industry-assistant/configs"
	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
)

// Source supplies a replacement synonym dictionary.
type Source interface {
	Load(ctx context.Context) (map[string][]string, error)
}

// ReloadPolicy gates how often the source is consulted. Both
// conditions must hold before a reload fires.
type ReloadPolicy struct {
	// MinLookups is the number of lookups since the last reload.
	MinLookups int64
	// MinInterval is the time since the last reload.
	MinInterval time.Duration
}

// DefaultReloadPolicy reloads at most hourly and only under use.
func DefaultReloadPolicy() ReloadPolicy {
	return ReloadPolicy{MinLookups: 100, MinInterval: time.Hour}
}

// Expander resolves synonyms. Safe for concurrent use.
type Expander struct {
	dict      atomic.Pointer[map[string][]string]
	thesaurus map[string][]string

	src    Source
	policy ReloadPolicy
	logger *slog.Logger

	lookups    atomic.Int64
	lastReload atomic.Int64 // unix seconds
	sf         singleflight.Group
}

// Option configures an Expander.
type Option func(*Expander)

// WithSource sets the shared dictionary source.
func WithSource(src Source) Option {
	return func(e *Expander) { e.src = src }
}

// WithReloadPolicy overrides the reload gating.
func WithReloadPolicy(p ReloadPolicy) Option {
	return func(e *Expander) { e.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) { e.logger = l }
}

// NewExpander builds an expander seeded from the embedded tables.
func NewExpander(opts ...Option) (*Expander, error) {
	e := &Expander{
		policy: DefaultReloadPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var dict map[string][]string
	if err := json.Unmarshal(configs.SynonymsJSON, &dict); err != nil {
		return nil, errors.New(errors.CodeDictLoad, "parse synonym table", err)
	}
	e.dict.Store(&dict)

	if err := json.Unmarshal(configs.ThesaurusJSON, &e.thesaurus); err != nil {
		return nil, errors.New(errors.CodeDictLoad, "parse thesaurus table", err)
	}
	return e, nil
}

// Lookup returns up to topN synonyms for a term. Latin terms resolve
// against the thesaurus with underscores rewritten to spaces and the
// term itself excluded; other terms resolve against the dictionary.
func (e *Expander) Lookup(term string, topN int) []string {
	if topN <= 0 {
		return nil
	}
	if isLatinWord(term) {
		var res []string
		for _, syn := range e.thesaurus[term] {
			syn = strings.ReplaceAll(syn, "_", " ")
			if syn != "" && syn != term {
				res = append(res, syn)
			}
			if len(res) >= topN {
				break
			}
		}
		return res
	}

	e.lookups.Add(1)
	e.maybeReload()

	key := strings.ToLower(strings.Join(strings.Fields(term), " "))
	dict := *e.dict.Load()
	res := dict[key]
	if len(res) > topN {
		res = res[:topN]
	}
	return res
}

// maybeReload swaps in a fresh dictionary from the source when the
// policy gates pass. Concurrent callers share one fetch.
func (e *Expander) maybeReload() {
	if e.src == nil {
		return
	}
	if e.lookups.Load() < e.policy.MinLookups {
		return
	}
	last := time.Unix(e.lastReload.Load(), 0)
	if time.Since(last) < e.policy.MinInterval {
		return
	}

	e.sf.Do("reload", func() (any, error) {
		e.lastReload.Store(time.Now().Unix())
		e.lookups.Store(0)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dict, err := e.src.Load(ctx)
		if err != nil {
			e.logger.Warn("synonym reload failed, keeping current dictionary",
				"error", err)
			return nil, nil
		}
		if dict == nil {
			return nil, nil
		}
		e.dict.Store(&dict)
		e.logger.Info("synonym dictionary reloaded", "terms", len(dict))
		return nil, nil
	})
}

// Size returns the number of entries in the active dictionary.
func (e *Expander) Size() int {
	return len(*e.dict.Load())
}

func isLatinWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
