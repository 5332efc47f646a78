// Package pqueue is a binary heap ordered by a caller-supplied comparator.
package pqueue

type Queue[T any] struct {
	items []T
	less  func(a, b T) bool
}

// New returns an empty queue. Pop yields the item for which less reports
// true against every other item.
func New[T any](less func(a, b T) bool) *Queue[T] {
	return &Queue[T]{less: less}
}

func (q *Queue[T]) Len() int { return len(q.items) }

// Reset empties the queue and keeps its capacity.
func (q *Queue[T]) Reset() { q.items = q.items[:0] }

func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
	q.up(len(q.items) - 1)
}

func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}
	top := q.items[0]
	q.items[0] = q.items[n-1]
	q.items[n-1] = zero
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.down(0)
	}
	return top, true
}

func (q *Queue[T]) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Queue[T]) down(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		m := l
		if r := l + 1; r < n && q.less(q.items[r], q.items[l]) {
			m = r
		}
		if !q.less(q.items[m], q.items[i]) {
			return
		}
		q.items[i], q.items[m] = q.items[m], q.items[i]
		i = m
	}
}
