package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var _ app.PuzzleCatalog = (*PuzzleCatalog)(nil)

// PuzzleCatalog caches each hunt's puzzle list with a TTL to avoid repeated
// DB hits on hunt pages. Only puzzle definitions are cached, never progress.
type PuzzleCatalog struct {
	loader app.PuzzleLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedPuzzles

	// generation counts invalidations per hunt; a load only fills the cache
	// when no invalidation happened while it ran.
	generation map[int64]uint64
}

type cachedPuzzles struct {
	puzzles   []domain.Puzzle
	expiresAt time.Time
}

func NewPuzzleCatalog(loader app.PuzzleLoader, ttl time.Duration) *PuzzleCatalog {
	return &PuzzleCatalog{
		loader:     loader,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:      make(map[int64]cachedPuzzles),
		generation: make(map[int64]uint64),
	}
}

func (c *PuzzleCatalog) Puzzles(ctx context.Context, huntID int64) ([]domain.Puzzle, error) {
	if puzzles, ok := c.lookup(huntID); ok {
		return puzzles, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(huntID, 10), func() (interface{}, error) {
		if puzzles, ok := c.lookup(huntID); ok {
			return puzzles, nil
		}
		now := c.clock()
		c.mu.RLock()
		gen := c.generation[huntID]
		c.mu.RUnlock()
		puzzles, err := c.loader.ListPuzzles(ctx, huntID)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.generation[huntID] == gen {
				c.cache[huntID] = cachedPuzzles{
					puzzles:   puzzles,
					expiresAt: now.Add(c.ttlWithJitter()),
				}
			}
			c.mu.Unlock()
		}
		return puzzles, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePuzzles(result.([]domain.Puzzle)), nil
}

func (c *PuzzleCatalog) lookup(huntID int64) ([]domain.Puzzle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[huntID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return clonePuzzles(entry.puzzles), true
}

// Invalidate drops the cached list so the next read reloads it.
func (c *PuzzleCatalog) Invalidate(_ context.Context, huntID int64) error {
	c.mu.Lock()
	delete(c.cache, huntID)
	c.generation[huntID]++
	c.mu.Unlock()
	c.sf.Forget(strconv.FormatInt(huntID, 10))
	return nil
}

func (c *PuzzleCatalog) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func clonePuzzles(puzzles []domain.Puzzle) []domain.Puzzle {
	return append([]domain.Puzzle(nil), puzzles...)
}
