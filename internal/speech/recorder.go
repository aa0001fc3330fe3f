package speech

import (
	"errors"
	"strings"

	"resume-wizard/internal/shared/metrics"
)

// Segment is one recognition event from the client. Non-final segments are
// interim hypotheses; final segments are committed transcript pieces.
type Segment struct {
	Final bool   `json:"final"`
	Text  string `json:"text"`
}

// ErrStopped is returned when pushing to a recorder that has stopped.
var ErrStopped = errors.New("recording stopped")

// Recorder accumulates recognition segments for one recording session.
// All state is owned by a single consuming goroutine. Final segments are
// committed exactly once, in the order received; the current partial is
// observable but never committed, and Stop discards it.
type Recorder struct {
	segments chan Segment
	partials chan chan string
	stops    chan chan string
	done     chan struct{}
}

// NewRecorder starts a recorder and its consuming goroutine.
func NewRecorder() *Recorder {
	r := &Recorder{
		segments: make(chan Segment, 16),
		partials: make(chan chan string),
		stops:    make(chan chan string),
		done:     make(chan struct{}),
	}
	go r.consume()
	return r
}

func (r *Recorder) consume() {
	defer close(r.done)
	var committed []string
	var partial string
	for {
		select {
		case seg := <-r.segments:
			if seg.Final {
				committed = append(committed, seg.Text)
				partial = ""
			} else {
				partial = seg.Text
			}
		case reply := <-r.partials:
			reply <- partial
		case reply := <-r.stops:
			// Drain segments already pushed so their finals are committed.
			for {
				select {
				case seg := <-r.segments:
					if seg.Final {
						committed = append(committed, seg.Text)
					}
				default:
					reply <- strings.TrimSpace(strings.Join(committed, " "))
					return
				}
			}
		}
	}
}

// Push delivers one segment to the recorder.
func (r *Recorder) Push(seg Segment) error {
	select {
	case <-r.done:
		return ErrStopped
	case r.segments <- seg:
		metrics.IncSpeechSegment(seg.Final)
		return nil
	}
}

// Partial returns the current uncommitted hypothesis, for display only.
func (r *Recorder) Partial() string {
	reply := make(chan string, 1)
	select {
	case r.partials <- reply:
		return <-reply
	case <-r.done:
		return ""
	}
}

// Stop ends the recording, discards any uncommitted partial, and returns the
// committed transcript.
func (r *Recorder) Stop() string {
	reply := make(chan string, 1)
	select {
	case r.stops <- reply:
		return <-reply
	case <-r.done:
		return ""
	}
}
