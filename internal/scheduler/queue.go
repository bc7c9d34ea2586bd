package scheduler

// pendingQueue is a FIFO of task names with set semantics.
//
// Enqueuing a name that is already waiting is a no-op, so a burst of calls for
// one task collapses to a single follow-up run.
//
// Not safe for concurrent use; the Scheduler guards it with its own mutex.
type pendingQueue struct {
	names []string
}

// Enqueue adds name to the back of the queue unless it is already waiting.
// Returns false if the name was already queued.
func (q *pendingQueue) Enqueue(name string) bool {
	for _, n := range q.names {
		if n == name {
			return false
		}
	}
	q.names = append(q.names, name)
	return true
}

// TryDequeue removes and returns the oldest name.
// Returns ("", false) if the queue is empty.
func (q *pendingQueue) TryDequeue() (string, bool) {
	if len(q.names) == 0 {
		return "", false
	}
	name := q.names[0]
	if len(q.names) == 1 {
		q.names = q.names[:0]
	} else {
		q.names = q.names[1:]
	}
	return name, true
}

// Names returns a copy of the waiting names, oldest first.
func (q *pendingQueue) Names() []string {
	out := make([]string, len(q.names))
	copy(out, q.names)
	return out
}

// Len returns the number of waiting names.
func (q *pendingQueue) Len() int {
	return len(q.names)
}
