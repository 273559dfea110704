// Package events implements the turn controller's inbox: a FIFO queue that
// lets a completion signalled while an event is being processed wait
// until that event has run to completion.
package events

import "github.com/nathoo/voicequest/types"

// Queue is a FIFO of pending events. It is not safe for concurrent use;
// the controller owning it is single-threaded.
type Queue struct {
	items []types.Event
}

// Push appends an event.
func (q *Queue) Push(ev types.Event) {
	q.items = append(q.items, ev)
}

// Pop removes and returns the oldest event.
func (q *Queue) Pop() (types.Event, bool) {
	if len(q.items) == 0 {
		return types.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = types.Event{}
	q.items = q.items[1:]
	return ev, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int { return len(q.items) }

// Reset drops every pending event.
func (q *Queue) Reset() { q.items = nil }
