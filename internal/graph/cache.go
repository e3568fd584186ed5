package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/starford/slipbox/internal/apperr"
)

// Store persists layouts keyed by graph serialization.
type Store interface {
	Layout(ctx context.Context, key string) (string, bool, error)
	SaveLayout(ctx context.Context, key, layout string) error
}

// Cache memoizes layouts in memory and in a Store. Concurrent requests for
// the same graph share one engine invocation.
type Cache struct {
	store  Store
	engine Engine
	logger *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	mem    map[string]Layout
	warned bool
}

// NewCache returns a cache backed by store that computes misses with engine.
func NewCache(store Store, engine Engine, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  store,
		engine: engine,
		logger: logger,
		mem:    make(map[string]Layout),
	}
}

// Get returns the layout of g with self-loops removed. When the layout engine
// is missing it logs a warning once and returns a nil layout.
func (c *Cache) Get(ctx context.Context, g *Graph) (Layout, error) {
	g = g.WithoutSelfLoops()
	key := g.Serialize()

	c.mu.Lock()
	if l, ok := c.mem[key]; ok {
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, g)
	})
	if err != nil {
		return nil, err
	}
	l, _ := v.(Layout)
	return l, nil
}

func (c *Cache) load(ctx context.Context, key string, g *Graph) (Layout, error) {
	stored, ok, err := c.store.Layout(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		l, err := decodeLayout(stored)
		if err == nil {
			c.remember(key, l)
			return l, nil
		}
		c.logger.Warn("discarding cached layout", slog.String("error", err.Error()))
	}

	l, err := c.engine.Layout(ctx, g)
	if errors.Is(err, apperr.ErrLayoutMissing) {
		c.mu.Lock()
		if !c.warned {
			c.warned = true
			c.logger.Warn("layout engine unavailable, graphs have no positions",
				slog.String("error", err.Error()))
		}
		c.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	encoded, err := encodeLayout(l)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveLayout(ctx, key, encoded); err != nil {
		return nil, err
	}
	c.remember(key, l)
	return l, nil
}

func (c *Cache) remember(key string, l Layout) {
	c.mu.Lock()
	c.mem[key] = l
	c.mu.Unlock()
}

func encodeLayout(l Layout) (string, error) {
	m := make(map[string][2]float64, len(l))
	for id, p := range l {
		m[strconv.Itoa(id)] = [2]float64{p.X, p.Y}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("graph: encode layout: %w", err)
	}
	return string(b), nil
}

func decodeLayout(s string) (Layout, error) {
	var m map[string][2]float64
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("graph: decode layout: %w", err)
	}
	l := make(Layout, len(m))
	for k, xy := range m {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("graph: decode layout: %w", err)
		}
		l[id] = Position{X: xy[0], Y: xy[1]}
	}
	return l, nil
}
