package events

import (
	"testing"

	"github.com/nathoo/voicequest/types"
)

func TestQueue_FIFO(t *testing.T) {
	var q Queue

	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}

	q.Push(types.Event{Type: types.EventSpeakComplete})
	q.Push(types.Event{Type: types.EventRecognised})
	q.Push(types.Event{Type: types.EventClick})

	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}

	want := []types.EventType{types.EventSpeakComplete, types.EventRecognised, types.EventClick}
	for i, w := range want {
		ev, ok := q.Pop()
		if !ok || ev.Type != w {
			t.Errorf("pop %d = %s, %v; want %s", i, ev.Type, ok, w)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
}

func TestQueue_Reset(t *testing.T) {
	var q Queue
	q.Push(types.Event{Type: types.EventNoInput})
	q.Reset()

	if q.Len() != 0 {
		t.Errorf("Len = %d after Reset", q.Len())
	}
}
