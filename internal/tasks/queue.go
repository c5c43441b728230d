package tasks

import (
	"sync"

	"github.com/desertthunder/recordroom/internal/services"
)

// Queue walks the shared playlist in order. It owns nothing about transport
// state; the playback session calls back into it on natural track end and the
// owner decides whether to auto-advance.
type Queue struct {
	mu     sync.Mutex
	tracks []services.Track
	index  int
	loop   bool
}

// NewQueue creates a queue over the playlist's tracks. When loop is true the
// queue wraps around at the end.
func NewQueue(tracks []services.Track, loop bool) *Queue {
	return &Queue{tracks: tracks, loop: loop}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Current returns the track at the cursor, or nil for an empty queue.
func (q *Queue) Current() *services.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.trackAtLocked(q.index)
}

// Next advances the cursor and returns the new current track. At the end of a
// non-looping queue it returns nil and leaves the cursor in place.
func (q *Queue) Next() *services.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}

	next := q.index + 1
	if next >= len(q.tracks) {
		if !q.loop {
			return nil
		}
		next = 0
	}
	q.index = next
	return q.trackAtLocked(q.index)
}

// Prev moves the cursor back and returns the new current track, wrapping only
// when looping.
func (q *Queue) Prev() *services.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}

	prev := q.index - 1
	if prev < 0 {
		if !q.loop {
			return nil
		}
		prev = len(q.tracks) - 1
	}
	q.index = prev
	return q.trackAtLocked(q.index)
}

// Jump moves the cursor to the given index and returns that track.
func (q *Queue) Jump(index int) *services.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.index = index
	return q.trackAtLocked(q.index)
}

// JumpToURI moves the cursor to the track with the given URI so that
// auto-advance continues from a track the user selected directly.
func (q *Queue) JumpToURI(uri string) *services.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tracks {
		if t.URI == uri {
			q.index = i
			return q.trackAtLocked(i)
		}
	}
	return nil
}

func (q *Queue) trackAtLocked(index int) *services.Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	track := q.tracks[index]
	return &track
}
