package tileupdate

import "sync"

// Queue is the ordered list of pending requests. Producers may enqueue
// from any goroutine; Drain hands the whole batch to one processing pass.
type Queue struct {
	mu    sync.Mutex
	items []Request
}

// Enqueue appends a request.
func (q *Queue) Enqueue(r Request) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

// Drain returns every pending request in order and empties the queue.
// Requests enqueued after Drain returns belong to the next pass.
func (q *Queue) Drain() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
