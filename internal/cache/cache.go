package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Stats 缓存统计
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"maxSize"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Cache 带 TTL 的 LRU 缓存。
// 容量满时淘汰最久未使用的条目，过期条目在读取时剔除。
type Cache[V any] struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // 队首为最久未使用
	inflight map[string]*call[V]

	hits      uint64
	misses    uint64
	evictions uint64
}

// New 创建缓存，maxSize <= 0 时容量不设上限，ttl <= 0 时条目不过期
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		maxSize:  maxSize,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		inflight: make(map[string]*call[V]),
	}
}

// Get 读取缓存值，过期条目按未命中处理并删除
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if !ent.expiresAt.IsZero() && time.Now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToBack(elem)
	c.hits++
	return ent.value, true
}

// Set 写入缓存值，使用缓存默认 TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL 写入缓存值并指定 TTL，ttl <= 0 表示不过期
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl)
}

func (c *Cache[V]) setLocked(key string, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToBack(elem)
		return
	}

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}

	c.entries[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

// Delete 删除条目，返回条目是否存在
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Clear 清空缓存，统计计数保留
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len 当前条目数（含未清理的过期条目）
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanupExpired 清理全部过期条目，返回清理数量
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		ent := elem.Value.(*entry[V])
		if !ent.expiresAt.IsZero() && now.After(ent.expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Stats 返回统计快照
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// GetOrCompute 读取缓存，未命中时调用 compute 计算并写入。
// 同一 key 的并发调用只执行一次 compute，其余调用等待其结果；
// 计算失败的结果不写入缓存。
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	// 双重检查：拿锁期间可能已有其他调用写入
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		if ent.expiresAt.IsZero() || time.Now().Before(ent.expiresAt) {
			c.order.MoveToBack(elem)
			c.hits++
			c.mu.Unlock()
			return ent.value, nil
		}
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.value, cl.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	cl := &call[V]{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.value, cl.err = compute(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		c.setLocked(key, cl.value, c.ttl)
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.value, cl.err
}

func (c *Cache[V]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}
