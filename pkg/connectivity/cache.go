package connectivity

import (
	"context"
	"sync"

	"github.com/teslashibe/go-mattersim/internal/log"
	"golang.org/x/sync/singleflight"
)

// Cache loads each scan's graph once and hands the same *Graph to every
// caller afterwards. Concurrent first requests for a scan share one load.
// Failed loads are not remembered.
type Cache struct {
	src Source

	mu     sync.RWMutex
	graphs map[string]*Graph

	group singleflight.Group
}

// NewCache creates a cache in front of a source.
func NewCache(src Source) *Cache {
	return &Cache{
		src:    src,
		graphs: make(map[string]*Graph),
	}
}

// Graph returns the graph of a scan, loading it on first use.
func (c *Cache) Graph(ctx context.Context, scanID string) (*Graph, error) {
	c.mu.RLock()
	g, ok := c.graphs[scanID]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The load outlives any single caller's cancellation; callers that give
	// up stop waiting without failing the others.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(scanID, func() (any, error) {
		c.mu.RLock()
		g, ok := c.graphs[scanID]
		c.mu.RUnlock()
		if ok {
			return g, nil
		}

		g, err := c.src.LoadGraph(loadCtx, scanID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.graphs[scanID] = g
		c.mu.Unlock()

		log.Component("connectivity").Info("graph loaded",
			"scan", scanID, "viewpoints", g.Len())
		return g, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Component("connectivity").Debug("graph load shared", "scan", scanID)
		}
		return res.Val.(*Graph), nil
	}
}

// Loaded returns how many graphs are cached.
func (c *Cache) Loaded() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}

var sharedCaches sync.Map // connectivity dir -> *Cache

// SharedCache returns the process-wide cache for a connectivity directory.
// Simulators pointed at the same directory reuse each other's graphs.
func SharedCache(dir string) *Cache {
	if c, ok := sharedCaches.Load(dir); ok {
		return c.(*Cache)
	}
	c, _ := sharedCaches.LoadOrStore(dir, NewCache(NewDirSource(dir)))
	return c.(*Cache)
}
