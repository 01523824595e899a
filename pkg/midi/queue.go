package midi

// Queue collects the events of one block in sample-offset order. Capacity is
// fixed at construction; Push never allocates, so it is safe on the audio
// thread. Events with equal offsets keep their arrival order.
type Queue struct {
	events  []Event
	dropped int
}

// NewQueue creates a queue holding up to capacity events.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{events: make([]Event, 0, capacity)}
}

// Push inserts e in offset order. It reports false and counts a drop when the
// queue is full.
func (q *Queue) Push(e Event) bool {
	if len(q.events) == cap(q.events) {
		q.dropped++
		return false
	}
	i := len(q.events)
	q.events = q.events[:i+1]
	for i > 0 && q.events[i-1].Offset > e.Offset {
		q.events[i] = q.events[i-1]
		i--
	}
	q.events[i] = e
	return true
}

// PushAll pushes every event and returns how many were accepted.
func (q *Queue) PushAll(events []Event) int {
	n := 0
	for _, e := range events {
		if q.Push(e) {
			n++
		}
	}
	return n
}

// Events returns the ordered events. The slice is valid until the next Push
// or Clear.
func (q *Queue) Events() []Event {
	return q.events
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Dropped returns how many events were rejected since the last Clear.
func (q *Queue) Dropped() int { return q.dropped }

// Clear empties the queue, keeping its storage.
func (q *Queue) Clear() {
	q.events = q.events[:0]
	q.dropped = 0
}
