package cache

import (
	"slices"
	"sync"
)

// listenerSet holds registered callbacks. It copies on write so a
// snapshot taken for dispatch is never mutated by concurrent
// registration, and hands out removal funcs instead of requiring
// comparable callbacks.
type listenerSet[F any] struct {
	mu     sync.Mutex
	nextID int
	ids    []int
	fns    map[int]F
}

func (l *listenerSet[F]) add(fn F) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]F)
	}
	id := l.nextID
	l.nextID++
	l.ids = append(l.ids, id)
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.fns[id]; !ok {
			return
		}
		delete(l.fns, id)
		if i := slices.Index(l.ids, id); i >= 0 {
			l.ids = slices.Delete(slices.Clone(l.ids), i, i+1)
		}
	}
}

// get returns the registered callbacks in registration order.
func (l *listenerSet[F]) get() []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]F, 0, len(l.fns))
	for _, id := range l.ids {
		if fn, ok := l.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
