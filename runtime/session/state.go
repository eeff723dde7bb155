package session

import (
	"fmt"
	"time"

	"github.com/AltairaLabs/VoiceDesk/runtime/capture"
	"github.com/AltairaLabs/VoiceDesk/runtime/projector"
)

// Status is the lifecycle position of a recording session.
type Status string

// Session statuses.
const (
	StatusIdle      Status = "idle"
	StatusRecording Status = "recording"
	StatusStopped   Status = "stopped"
	StatusUploading Status = "uploading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// transitions lists the legal moves. Anything absent is a programming error.
var transitions = map[Status][]Status{
	StatusIdle:      {StatusRecording, StatusStopped, StatusFailed},
	StatusRecording: {StatusStopped, StatusFailed},
	StatusStopped:   {StatusUploading},
	StatusUploading: {StatusSucceeded, StatusFailed},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Variant names the product flow a session belongs to.
type Variant string

// Session variants.
const (
	VariantMessage Variant = "message"
	VariantMeeting Variant = "meeting"
	VariantFile    Variant = "file"
)

// Session is a point-in-time snapshot of one recording session. Chunks and
// Audio share memory with the controller and must be treated as read-only.
type Session struct {
	ID      string
	Variant Variant
	Status  Status

	StartedAt      time.Time
	StoppedAt      time.Time
	FinishedAt     time.Time
	ElapsedSeconds int

	// Chunks holds the buffered audio of a message recording. Meetings
	// upload as they go and keep only the counters below.
	Chunks     [][]byte
	ChunkCount int
	ByteCount  int

	Audio  *capture.Audio
	Result *projector.UploadResult

	Failure *Failure

	ServerSessionID int64
	MeetingID       *int64
}

// Bytes returns the total size of the captured chunks.
func (s Session) Bytes() int {
	return s.ByteCount
}

// Duration returns the capture duration, or zero before the session stopped.
func (s Session) Duration() time.Duration {
	if s.StoppedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.StoppedAt.Sub(s.StartedAt)
}

// record is the mutable state behind a Session, guarded by the owning
// controller's mutex.
type record struct {
	sess Session

	handle capture.Handle
	done   chan struct{}

	// retainChunks is false for meetings, whose segments leave memory once
	// uploaded.
	retainChunks bool

	// Closed once Stop finalized (or failed to finalize) the capture.
	stopped  chan struct{}
	stopErr  error
	uploadAt time.Time
}

func newRecord(id string, variant Variant) *record {
	return &record{
		sess:         Session{ID: id, Variant: variant, Status: StatusIdle},
		done:         make(chan struct{}),
		retainChunks: variant != VariantMeeting,
	}
}

// addChunk counts a chunk and buffers it when the variant keeps audio.
func (r *record) addChunk(chunk []byte) (index, total int) {
	if r.retainChunks {
		r.sess.Chunks = append(r.sess.Chunks, chunk)
	}
	index = r.sess.ChunkCount
	r.sess.ChunkCount++
	r.sess.ByteCount += len(chunk)
	return index, r.sess.ByteCount
}

// discardChunks drops buffered audio after a failed or abandoned capture.
func (r *record) discardChunks() {
	r.sess.Chunks = nil
	r.sess.ChunkCount = 0
	r.sess.ByteCount = 0
}

// moveTo applies a transition. It panics on an illegal move, which would
// mean the controller's own bookkeeping is broken.
func (r *record) moveTo(to Status) {
	if !canTransition(r.sess.Status, to) {
		panic(fmt.Sprintf("session %s: illegal transition %s -> %s", r.sess.ID, r.sess.Status, to))
	}
	r.sess.Status = to
}

func (r *record) snapshot() Session {
	s := r.sess
	s.Chunks = append([][]byte(nil), r.sess.Chunks...)
	return s
}
