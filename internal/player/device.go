package player

import (
	"context"
	"time"
)

// Device is the audio output the Engine drives. Implementations emit events
// only for sources that started successfully.
type Device interface {
	AssignSource(url string)
	// Play starts the assigned source, or resumes it when paused on the same
	// source. It returns once audio is flowing or the source was rejected.
	Play(ctx context.Context) error
	Pause()
	SetVolume(v float64)
	Events() <-chan Event
}

type EventType int

const (
	EventEnded EventType = iota
	EventError
	EventLoadedMetadata
	EventTimeUpdate
)

func (t EventType) String() string {
	switch t {
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventLoadedMetadata:
		return "loadedMetadata"
	case EventTimeUpdate:
		return "timeUpdate"
	default:
		return "unknown"
	}
}

// Event is emitted by a Device. Source is the URL the event belongs to.
type Event struct {
	Type    EventType
	Source  string
	Title   string
	Elapsed time.Duration
	Err     error
}
