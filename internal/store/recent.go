package store

import (
	"container/list"

	"github.com/agency1/hippocampus/internal/model"
)

// recentBuffer is an insertion-ordered map with FIFO eviction.
// Front is oldest.
type recentBuffer struct {
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newRecentBuffer(capacity int) *recentBuffer {
	return &recentBuffer{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

func (b *recentBuffer) len() int { return b.order.Len() }

func (b *recentBuffer) get(key string) (*model.Entry, bool) {
	el, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*model.Entry), true
}

// push appends e, which must not already be present, and returns the entry
// evicted to make room, if any.
func (b *recentBuffer) push(e *model.Entry) *model.Entry {
	var evicted *model.Entry
	if b.order.Len() >= b.capacity {
		front := b.order.Front()
		evicted = b.order.Remove(front).(*model.Entry)
		delete(b.index, evicted.Key)
	}
	b.index[e.Key] = b.order.PushBack(e)
	return evicted
}

func (b *recentBuffer) remove(key string) {
	if el, ok := b.index[key]; ok {
		b.order.Remove(el)
		delete(b.index, key)
	}
}

// each visits entries oldest first until fn returns false.
func (b *recentBuffer) each(fn func(*model.Entry) bool) {
	for el := b.order.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.(*model.Entry)) {
			return
		}
	}
}
