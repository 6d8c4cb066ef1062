// Package transcript buffers finalized speech-to-text results for a session loop.
package transcript

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Queue bounded FIFO of final transcripts. When full, Push evicts the oldest entry.
// Any number of producers may Push; one consumer reads C.
type Queue struct {
	mu      sync.Mutex
	ch      chan string
	dropped atomic.Int64
	closed  bool
}

// NewQueue creates a queue holding at most size transcripts
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan string, size)}
}

// OnFinalTranscript enqueues a finalized utterance. Interim results never reach here.
// Blank text is skipped; one-syllable answers such as "네" are kept.
// It reports false when the text was skipped or the queue is closed.
func (q *Queue) OnFinalTranscript(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return q.Push(text)
}

// Push adds text, dropping the oldest entry when the queue is full
func (q *Queue) Push(text string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	for {
		select {
		case q.ch <- text:
			return true
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// C receive side for the session loop; closed after Close
func (q *Queue) C() <-chan string {
	return q.ch
}

// Len queued transcripts
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped number of transcripts evicted by overflow
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting transcripts; queued ones can still be drained
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
