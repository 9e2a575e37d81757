package kern

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	glog "github.com/phoenixrt/phostdio/internal/log"
)

// PipeBuf is the largest write that is guaranteed to be atomic: a write of at
// most PipeBuf bytes either transfers whole or not at all, never partially.
const PipeBuf = 4096

// DefaultPipeCapacity is the ring size used when a caller passes 0. It is
// larger than PipeBuf so a writer can queue a second atomic batch while a
// reader drains the first.
const DefaultPipeCapacity = 16 * PipeBuf

// Pipe error conditions. Read and Write return counts of 0 with a nil error
// for the would-block cases (empty with writers, full with readers); these
// errors are the distinguished terminal states.
var (
	// ErrNoWriters means the pipe is empty and every writer has been closed:
	// end of file.
	ErrNoWriters = errors.New("pipe has no writers")

	// ErrNoReaders means every reader has been closed: a broken pipe.
	ErrNoReaders = errors.New("pipe has no readers")
)

// pipe is the shared ring buffer. Reader and writer endpoints hold reference
// counts on it; the buffer lives until both counts reach zero.
type pipe struct {
	id      uuid.UUID
	mu      sync.Mutex
	buf     []byte
	rpos    int
	size    int // bytes currently buffered
	readers atomic.Int32
	writers atomic.Int32
}

// PipeReader is the reading endpoint of a pipe.
type PipeReader struct {
	p      *pipe
	closed bool
}

// PipeWriter is the writing endpoint of a pipe.
type PipeWriter struct {
	p      *pipe
	closed bool
}

// NewPipe creates a connected reader/writer pair with the given ring capacity
// (0 means DefaultPipeCapacity).
func NewPipe(capacity int) (*PipeReader, *PipeWriter) {
	if capacity <= 0 {
		capacity = DefaultPipeCapacity
	}
	p := &pipe{
		id:  uuid.New(),
		buf: make([]byte, capacity),
	}
	p.readers.Store(1)
	p.writers.Store(1)
	if glog.L != nil {
		glog.L.Trace("kern", "pipe_new", p.id.String())
	}
	return &PipeReader{p: p}, &PipeWriter{p: p}
}

// ID identifies the underlying pipe in traces.
func (r *PipeReader) ID() uuid.UUID { return r.p.id }

// ID identifies the underlying pipe in traces.
func (w *PipeWriter) ID() uuid.UUID { return w.p.id }

// Read copies up to len(p) buffered bytes into p.
//
// Results follow the POSIX O_NONBLOCK rules:
//   - empty pipe with live writers: (0, nil), no bytes transferred
//   - empty pipe with no writers: (0, ErrNoWriters) — end of file
//   - otherwise: (n, nil) with n > 0
func (r *PipeReader) Read(dst []byte) (int, error) {
	pb := r.p
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.size == 0 {
		if pb.writers.Load() == 0 {
			return 0, ErrNoWriters
		}
		return 0, nil
	}

	n := len(dst)
	if n > pb.size {
		n = pb.size
	}
	for i := 0; i < n; i++ {
		dst[i] = pb.buf[(pb.rpos+i)%len(pb.buf)]
	}
	pb.rpos = (pb.rpos + n) % len(pb.buf)
	pb.size -= n
	return n, nil
}

// Write copies bytes from src into the ring.
//
// Results follow the POSIX O_NONBLOCK rules, with PipeBuf atomicity:
//   - no live readers: (0, ErrNoReaders) — broken pipe
//   - len(src) <= PipeBuf and not enough free space: (0, nil), nothing written
//   - len(src) > PipeBuf: writes as much as fits; (0, nil) if the ring is full
func (w *PipeWriter) Write(src []byte) (int, error) {
	pb := w.p
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.readers.Load() == 0 {
		return 0, ErrNoReaders
	}

	free := len(pb.buf) - pb.size
	if len(src) <= PipeBuf && free < len(src) {
		return 0, nil
	}

	n := len(src)
	if n > free {
		n = free
	}
	wpos := (pb.rpos + pb.size) % len(pb.buf)
	for i := 0; i < n; i++ {
		pb.buf[(wpos+i)%len(pb.buf)] = src[i]
	}
	pb.size += n
	return n, nil
}

// Clone adds another reader to the same pipe, for dup-style descriptor
// duplication.
func (r *PipeReader) Clone() *PipeReader {
	r.p.readers.Add(1)
	return &PipeReader{p: r.p}
}

// Clone adds another writer to the same pipe.
func (w *PipeWriter) Clone() *PipeWriter {
	w.p.writers.Add(1)
	return &PipeWriter{p: w.p}
}

// Close drops this reader's reference. Closing the last reader turns future
// writes into broken-pipe failures. Close is idempotent.
func (r *PipeReader) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.p.readers.Add(-1)
	if glog.L != nil {
		glog.L.Trace("kern", "pipe_reader_close", r.p.id.String())
	}
}

// Close drops this writer's reference. Closing the last writer turns an empty
// pipe into end of file for readers. Close is idempotent.
func (w *PipeWriter) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.p.writers.Add(-1)
	if glog.L != nil {
		glog.L.Trace("kern", "pipe_writer_close", w.p.id.String())
	}
}
