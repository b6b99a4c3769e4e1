package main

// Change is one replicated field update waiting to be sent to clients
type Change struct {
	Field string `json:"f" msgpack:"f"`
	Value any    `json:"v" msgpack:"v"`
}

// ReplicationQueue collects outbound changes between broadcasts.
// Not safe for concurrent use; the arena drains it under its own lock.
type ReplicationQueue struct {
	pending []Change
}

// Push appends a change
func (q *ReplicationQueue) Push(c Change) {
	q.pending = append(q.pending, c)
}

// Drain returns all pending changes and empties the queue
func (q *ReplicationQueue) Drain() []Change {
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending changes
func (q *ReplicationQueue) Len() int {
	return len(q.pending)
}

// Observable is a replicated value cell. Set stores the value, queues it for
// replication and calls listeners synchronously in subscription order.
type Observable[T comparable] struct {
	field     string
	value     T
	queue     *ReplicationQueue
	listeners []func(old, cur T)
}

// NewObservable creates a cell; queue may be nil for server-local values
func NewObservable[T comparable](field string, initial T, queue *ReplicationQueue) *Observable[T] {
	return &Observable[T]{field: field, value: initial, queue: queue}
}

// Get returns the current value
func (o *Observable[T]) Get() T {
	return o.value
}

// Set changes the value. Setting the same value is a no-op.
func (o *Observable[T]) Set(v T) {
	if v == o.value {
		return
	}
	old := o.value
	o.value = v
	if o.queue != nil {
		o.queue.Push(Change{Field: o.field, Value: v})
	}
	for _, fn := range o.listeners {
		fn(old, v)
	}
}

// Apply stores an inbound replicated value without queueing it again
func (o *Observable[T]) Apply(v T) {
	if v == o.value {
		return
	}
	old := o.value
	o.value = v
	for _, fn := range o.listeners {
		fn(old, v)
	}
}

// Subscribe registers a change listener
func (o *Observable[T]) Subscribe(fn func(old, cur T)) {
	o.listeners = append(o.listeners, fn)
}
