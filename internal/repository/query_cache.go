package repository

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/metrics"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

const (
	DefaultCacheTTL        = 60 * time.Second
	DefaultCacheMaxEntries = 100
	DefaultSweepInterval   = 300 * time.Second
)

type queryKind int

const (
	queryByID queryKind = iota + 1
	queryByRange
	queryByCategory
	queryByApplication
)

func (k queryKind) String() string {
	switch k {
	case queryByID:
		return "id"
	case queryByRange:
		return "range"
	case queryByCategory:
		return "category"
	case queryByApplication:
		return "application"
	}
	return "unknown"
}

// QueryKey identifies one cached activity query. Only the fields relevant to
// Kind are set, so keys stay comparable map keys.
type QueryKey struct {
	Kind        queryKind
	ID          string
	Start       int64
	End         int64
	Category    model.ActivityCategory
	Application string
	Limit       int
}

func byIDKey(id string) QueryKey {
	return QueryKey{Kind: queryByID, ID: id}
}

func byRangeKey(start, end time.Time) QueryKey {
	return QueryKey{Kind: queryByRange, Start: start.UnixNano(), End: end.UnixNano()}
}

func byCategoryKey(c model.ActivityCategory, limit int) QueryKey {
	return QueryKey{Kind: queryByCategory, Category: c, Limit: limit}
}

func byApplicationKey(name string, limit int) QueryKey {
	return QueryKey{Kind: queryByApplication, Application: name, Limit: limit}
}

func (k QueryKey) String() string {
	switch k.Kind {
	case queryByID:
		return "id:" + k.ID
	case queryByRange:
		return fmt.Sprintf("range:%d:%d", k.Start, k.End)
	case queryByCategory:
		return fmt.Sprintf("category:%s:%d", k.Category, k.Limit)
	case queryByApplication:
		return fmt.Sprintf("application:%s:%d", k.Application, k.Limit)
	}
	return "unknown"
}

type cacheEntry struct {
	key      QueryKey
	records  []model.ActivityRecord
	storedAt time.Time
}

// queryCache is a bounded LRU of query results with a per-entry TTL.
//
// generation is bumped on every invalidation; a population that started
// before the bump is dropped so it cannot resurrect pre-write results.
type queryCache struct {
	mu         sync.Mutex
	entries    map[QueryKey]*list.Element
	lru        *list.List
	ttl        time.Duration
	maxEntries int
	generation uint64
	clock      clock.Clock
}

func newQueryCache(ttl time.Duration, maxEntries int, clk clock.Clock) *queryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &queryCache{
		entries:    make(map[QueryKey]*list.Element),
		lru:        list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clk,
	}
}

// get returns a copy of the cached records when present and younger than the TTL.
func (c *queryCache) get(key QueryKey) ([]model.ActivityRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.clock.Now().Sub(entry.storedAt) >= c.ttl {
		c.removeElement(el)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}
	c.lru.MoveToFront(el)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return cloneRecords(entry.records), true
}

func (c *queryCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// put stores records for key unless the cache was invalidated after gen was read.
func (c *queryCache) put(key QueryKey, records []model.ActivityRecord, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.records = records
		entry.storedAt = c.clock.Now()
		c.lru.MoveToFront(el)
		return true
	}
	el := c.lru.PushFront(&cacheEntry{key: key, records: records, storedAt: c.clock.Now()})
	c.entries[key] = el
	for c.lru.Len() > c.maxEntries {
		c.removeElement(c.lru.Back())
		metrics.CacheEvictions.WithLabelValues("capacity").Inc()
	}
	metrics.CacheEntries.Set(float64(c.lru.Len()))
	return true
}

// invalidateAll drops every entry and fences off in-flight populations.
func (c *queryCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.clearLocked("invalidate")
}

// sweep evicts everything regardless of age.
func (c *queryCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lru.Len()
	c.clearLocked("sweep")
	return n
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *queryCache) clearLocked(reason string) {
	if n := c.lru.Len(); n > 0 {
		metrics.CacheEvictions.WithLabelValues(reason).Add(float64(n))
	}
	c.entries = make(map[QueryKey]*list.Element)
	c.lru.Init()
	metrics.CacheEntries.Set(0)
}

func (c *queryCache) removeElement(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(el)
	metrics.CacheEntries.Set(float64(c.lru.Len()))
}

func cloneRecords(in []model.ActivityRecord) []model.ActivityRecord {
	if in == nil {
		return nil
	}
	out := make([]model.ActivityRecord, len(in))
	for i, r := range in {
		if r.EndTime != nil {
			end := *r.EndTime
			r.EndTime = &end
		}
		if r.WindowTitle != nil {
			title := *r.WindowTitle
			r.WindowTitle = &title
		}
		if r.URL != nil {
			u := *r.URL
			r.URL = &u
		}
		out[i] = r
	}
	return out
}

func cloneRecord(r model.ActivityRecord) model.ActivityRecord {
	return cloneRecords([]model.ActivityRecord{r})[0]
}
