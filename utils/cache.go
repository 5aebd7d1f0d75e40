package utils

import (
	"sync"

	"github.com/floatdrop/lru"
)

type Cache[K comparable, T any] interface {
	Get(key K) (value T, ok bool)
	Set(key K, value T)
	Clear()
}

type LRUCache[K comparable, T any] struct {
	lock   sync.Mutex
	size   int
	values *lru.LRU[K, T]
}

func NewLRUCache[K comparable, T any](size int) *LRUCache[K, T] {
	return &LRUCache[K, T]{
		size:   size,
		values: lru.New[K, T](size),
	}
}

func (c *LRUCache[K, T]) Get(key K) (value T, ok bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if v := c.values.Get(key); v != nil {
		return *v, true
	}
	return value, false
}

func (c *LRUCache[K, T]) Set(key K, value T) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.values.Set(key, value)
}

func (c *LRUCache[K, T]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.values = lru.New[K, T](c.size)
}

type NilCache[K comparable, T any] struct {
}

func NewNilCache[K comparable, T any]() *NilCache[K, T] {
	return &NilCache[K, T]{}
}

func (n *NilCache[K, T]) Get(K) (value T, ok bool) {
	return value, false
}

func (n *NilCache[K, T]) Set(K, T) {
}

func (n *NilCache[K, T]) Clear() {
}
