package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var _ app.PuzzleCatalog = (*PuzzleCatalog)(nil)

// loadedField marks a populated hash so hunts without puzzles still hit the cache.
const loadedField = "_loaded"

// PuzzleCatalog caches each hunt's puzzles in Redis and falls back to a loader
// on cache miss. Puzzles are stored as: HSET hunt:{huntID}:puzzles {puzzleID} {json}
//
// hunt:{huntID}:puzzles:version is bumped on every invalidation. A load writes
// its result under WATCH on that key and only if the version it started from
// is still current, so a load racing an invalidation never refills the cache
// with the old list.
type PuzzleCatalog struct {
	client *redis.Client
	loader app.PuzzleLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewPuzzleCatalog(client *redis.Client, loader app.PuzzleLoader, ttl time.Duration) *PuzzleCatalog {
	return &PuzzleCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PuzzleCatalog) Puzzles(ctx context.Context, huntID int64) ([]domain.Puzzle, error) {
	key := c.key(huntID)
	if puzzles, ok := c.cached(ctx, key); ok {
		return puzzles, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if puzzles, ok := c.cached(ctx, key); ok {
			return puzzles, nil
		}

		versionKey := c.versionKey(huntID)
		version, err := c.version(ctx, c.client, versionKey)
		if err != nil {
			// Without a version the write cannot be guarded; serve uncached.
			return c.loader.ListPuzzles(ctx, huntID)
		}
		puzzles, err := c.loader.ListPuzzles(ctx, huntID)
		if err != nil {
			return nil, err
		}

		values := make([]interface{}, 0, 2*len(puzzles)+2)
		values = append(values, loadedField, "1")
		for _, p := range puzzles {
			raw, err := json.Marshal(p)
			if err != nil {
				return nil, fmt.Errorf("encode puzzle %d: %w", p.ID, err)
			}
			values = append(values, strconv.FormatInt(p.ID, 10), raw)
		}

		// A failed or aborted write only costs a cache miss.
		_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := c.version(ctx, tx, versionKey)
			if err != nil || current != version {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.HSet(ctx, key, values...)
				if ttl := c.ttlWithJitter(); ttl > 0 {
					pipe.Expire(ctx, key, ttl)
				}
				return nil
			})
			return err
		}, versionKey)

		return puzzles, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Puzzle(nil), result.([]domain.Puzzle)...), nil
}

func (c *PuzzleCatalog) cached(ctx context.Context, key string) ([]domain.Puzzle, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || fields[loadedField] == "" {
		return nil, false
	}
	puzzles := make([]domain.Puzzle, 0, len(fields)-1)
	for field, raw := range fields {
		if field == loadedField {
			continue
		}
		var p domain.Puzzle
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, false
		}
		puzzles = append(puzzles, p)
	}
	sort.Slice(puzzles, func(i, j int) bool {
		if puzzles[i].Order != puzzles[j].Order {
			return puzzles[i].Order < puzzles[j].Order
		}
		if puzzles[i].Name != puzzles[j].Name {
			return puzzles[i].Name < puzzles[j].Name
		}
		return puzzles[i].ID < puzzles[j].ID
	})
	return puzzles, true
}

// Invalidate drops the cached hash and bumps the version so loads already in
// flight discard their result.
func (c *PuzzleCatalog) Invalidate(ctx context.Context, huntID int64) error {
	key := c.key(huntID)
	c.sf.Forget(key)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.versionKey(huntID))
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// version reads the invalidation counter; a missing key is version zero.
func (c *PuzzleCatalog) version(ctx context.Context, r stringGetter, versionKey string) (int64, error) {
	v, err := r.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *PuzzleCatalog) key(huntID int64) string {
	return "hunt:" + strconv.FormatInt(huntID, 10) + ":puzzles"
}

func (c *PuzzleCatalog) versionKey(huntID int64) string {
	return c.key(huntID) + ":version"
}

func (c *PuzzleCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
