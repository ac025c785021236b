package player

import "github.com/glebovdev/radio-cli/internal/station"

// Queue is the ordered list used for next/prev navigation and the position of
// the active station in it. A cursor of -1 means nothing is active.
// Queue is not safe for concurrent use; the Engine guards it.
type Queue struct {
	items  []station.Station
	cursor int
}

func NewQueue() *Queue {
	return &Queue{cursor: -1}
}

// Replace swaps in a new list wholesale. Unplayable stations are dropped and
// the cursor lands on selected, or on the first item when selected is absent.
func (q *Queue) Replace(items []station.Station, selected station.Station) {
	q.items = station.FilterPlayable(items)
	if len(q.items) == 0 {
		q.cursor = -1
		return
	}
	q.cursor = 0
	if idx := q.indexOf(selected); idx >= 0 {
		q.cursor = idx
	}
}

// Focus moves the cursor to st, or makes st the only item when it isn't queued.
func (q *Queue) Focus(st station.Station) {
	if idx := q.indexOf(st); idx >= 0 {
		q.cursor = idx
		return
	}
	q.items = []station.Station{st}
	q.cursor = 0
}

// Step moves the cursor by delta with wraparound and returns the new current
// station. It reports false on an empty queue.
func (q *Queue) Step(delta int) (station.Station, bool) {
	n := len(q.items)
	if n == 0 {
		return station.Station{}, false
	}
	if q.cursor < 0 {
		q.cursor = 0
	} else {
		q.cursor = ((q.cursor+delta)%n + n) % n
	}
	return q.items[q.cursor], true
}

func (q *Queue) Current() (station.Station, bool) {
	if q.cursor < 0 || q.cursor >= len(q.items) {
		return station.Station{}, false
	}
	return q.items[q.cursor], true
}

func (q *Queue) Cursor() int {
	return q.cursor
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queued stations.
func (q *Queue) Items() []station.Station {
	out := make([]station.Station, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) indexOf(st station.Station) int {
	key := st.Key()
	for i, item := range q.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
