package viewsync

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 文档注释：会话级 LRU（会话 ID 为键，值为上一次返回的标记集合）
// 背景：客户端每次刷新视口只需拿到增删集合；服务端记住上次下发的结果用于差分，TTL 与容量可调。
// 约束：过期或被淘汰的会话视为首次刷新，全部标记进入 add。
type Sessions[D any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry[D any] struct {
	k   string
	v   []D
	exp time.Time
}

func NewSessions[D any](capacity int, ttl time.Duration) *Sessions[D] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Sessions[D]{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

// NewSessionID 生成新的会话 ID
func NewSessionID() string { return uuid.NewString() }

func (c *Sessions[D]) Get(k string) ([]D, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(entry[D])
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return nil, false
}

func (c *Sessions[D]) Set(k string, v []D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry[D]{k: k, v: v, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(entry[D]).k)
		c.lst.Remove(back)
	}
}

// Swap 记录本次集合并返回与上次集合的差分
func (c *Sessions[D]) Swap(k string, current []D, key func(D) Key) Result[D] {
	prev, _ := c.Get(k)
	c.Set(k, current)
	return Diff(prev, current, key)
}

func (c *Sessions[D]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
