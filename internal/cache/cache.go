// Package cache memoizes text extraction by document fingerprint. Concurrent requests
// for the same fingerprint share one computation.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// Store persists encoded values by key. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

type Cache struct {
	store  Store
	group  singleflight.Group
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// Open builds a cache from configuration: in memory when DSN is empty, SQL otherwise.
func Open(ctx context.Context, cfg common.CacheConfig, logger *slog.Logger) (*Cache, error) {
	if cfg.DSN == "" {
		return New(NewMemoryStore(cfg.MaxEntries), logger), nil
	}
	store, err := OpenSQL(ctx, cfg.DSN, cfg.Table, logger)
	if err != nil {
		return nil, err
	}
	return New(store, logger), nil
}

func (c *Cache) Store() Store { return c.store }

func (c *Cache) Close() error { return c.store.Close() }

// ExtractedText returns the cached text for doc or runs compute once per format and
// fingerprint. Documents with an unsupported extension go straight to compute and are
// never stored. Store failures are logged and treated as misses. hit reports whether
// the value came from the store rather than from this call's computation.
func (c *Cache) ExtractedText(ctx context.Context, doc *entity.RawDocument, compute func(context.Context) (entity.ExtractedText, error)) (text entity.ExtractedText, hit bool, err error) {
	format := constants.MapExtToFormat(doc.Ext())
	if format == "" {
		text, err = compute(ctx)
		return text, false, err
	}
	key := textKey(format, doc.Fingerprint())
	log := c.logger.With("key", key, "filename", doc.Filename())

	if b, ok, gerr := c.store.Get(ctx, key); gerr != nil {
		log.Warn("cache.get_failed", "error", gerr)
	} else if ok {
		derr := json.Unmarshal(b, &text)
		if derr == nil {
			log.Debug("cache.hit")
			return text, true, nil
		}
		log.Warn("cache.decode_failed", "error", derr)
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		et, err := compute(ctx)
		if err != nil {
			return entity.ExtractedText{}, err
		}
		if b, merr := json.Marshal(et); merr != nil {
			log.Warn("cache.encode_failed", "error", merr)
		} else if perr := c.store.Put(ctx, key, b); perr != nil {
			log.Warn("cache.put_failed", "error", perr)
		}
		return et, nil
	})
	if err != nil {
		return entity.ExtractedText{}, false, err
	}
	log.Debug("cache.miss", "shared", shared)
	return cloneText(v.(entity.ExtractedText)), false, nil
}

func textKey(format, fingerprint string) string {
	return "text:" + format + ":" + fingerprint
}

// cloneText keeps callers that share a flight from aliasing one Warnings slice.
func cloneText(t entity.ExtractedText) entity.ExtractedText {
	if t.Warnings != nil {
		t.Warnings = append([]string(nil), t.Warnings...)
	}
	return t
}
