// Package stdio implements the C library's buffered stream I/O subsystem:
// FILE streams over a fixed descriptor table, with the printf/scanf format
// engine on top.
//
// A Runtime owns a fixed-size stream table (FOPEN_MAX slots, slots 0-2
// permanently bound to the standard streams) and a descriptor table. Streams
// are claimed from the table by Open, reconfigured in place by Reopen, and
// returned to the pool by Close.
//
// Every public operation takes the stream's lock; *Unlocked variants exist
// for callers holding the lock via Lockf/Unlockf, mirroring POSIX's
// getc_unlocked family. The lock is a plain spin lock (yield between
// attempts), not a recursive mutex.
package stdio

import (
	"io"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"github.com/phoenixrt/phostdio/internal/config"
	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/internal/fd"
	"github.com/phoenixrt/phostdio/internal/kern"
	glog "github.com/phoenixrt/phostdio/internal/log"
	"go.uber.org/zap"
)

// CharWidth is a stream's character-width commitment. Once a stream performs
// a narrow or wide operation it is permanently committed to that width; a
// later operation of the other width fails with EINVAL.
type CharWidth uint8

const (
	WidthUnset CharWidth = iota
	WidthNarrow
	WidthWide
)

// BufferMode selects a stream's buffering discipline.
type BufferMode uint8

const (
	Unbuffered    BufferMode = iota // _IONBF
	LineBuffered                    // _IOLBF
	FullyBuffered                   // _IOFBF
)

type ioMode uint8

const (
	ioRead  ioMode = 1
	ioWrite ioMode = 2
	ioRW    ioMode = ioRead | ioWrite
)

// spinLock is the per-stream mutual-exclusion lock: busy-retry with a yield,
// since the target environment's blocking mutexes are not part of this core.
type spinLock struct {
	v atomic.Int32
}

func (l *spinLock) Lock() {
	for !l.v.CompareAndSwap(0, 1) {
		kern.Yield()
	}
}

func (l *spinLock) TryLock() bool {
	return l.v.CompareAndSwap(0, 1)
}

func (l *spinLock) Unlock() {
	l.v.Store(0)
}

// Stream is one FILE: a slot in the runtime's fixed stream table.
//
// All mutable state below lk is guarded by lk. The buffer is
// direction-exclusive: while reading it holds read-ahead bytes (rpos/rlen),
// while writing it holds not-yet-flushed bytes (wlen); RW streams flush or
// discard it when the direction turns.
type Stream struct {
	rt   *Runtime
	slot int

	lk spinLock

	open     bool
	mode     ioMode
	width    CharWidth
	bufMode  BufferMode
	buf      []byte
	bufOwned bool
	wlen     int
	rpos     int
	rlen     int

	// pushback holds ungotten bytes, most recent last; reads consume from
	// the end (LIFO).
	pushback [utf8.UTFMax]byte
	pushlen  int

	eof   bool
	ioerr bool

	fdnum int
	path  string
}

// Runtime hosts one process's stdio state: the stream table, the descriptor
// table, and the file namespace.
type Runtime struct {
	cfg     config.Config
	fds     *fd.Table
	ns      *kern.Namespace
	streams []*Stream
}

// New creates a runtime with the standard streams bound to the host
// process's stdin, stdout, and stderr.
func New(cfg config.Config) *Runtime {
	return NewWithHost(cfg, os.Stdin, os.Stdout, os.Stderr)
}

// NewWithHost creates a runtime whose standard streams are backed by the
// given host endpoints. Tests use in-memory endpoints here.
func NewWithHost(cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) *Runtime {
	rt := &Runtime{
		cfg:     cfg,
		fds:     fd.NewTable(cfg.OpenMax),
		ns:      kern.NewNamespace(),
		streams: make([]*Stream, cfg.FopenMax),
	}
	for i := range rt.streams {
		rt.streams[i] = &Stream{rt: rt, slot: i}
	}

	// Slots 0-2 are permanently bound to the standard streams. Per C
	// convention stdout is line-buffered and stderr unbuffered.
	rt.bindStd(0, ioRead, stdin, nil, FullyBuffered)
	rt.bindStd(1, ioWrite, nil, stdout, LineBuffered)
	rt.bindStd(2, ioWrite, nil, stderr, Unbuffered)
	return rt
}

func (rt *Runtime) bindStd(slot int, mode ioMode, r io.Reader, w io.Writer, bm BufferMode) {
	fdnum, err := rt.fds.OpenHost(r, w)
	if err != nil || fdnum != slot {
		// Slots are claimed in order on a fresh table; anything else is a
		// bug in this library.
		panic(errno.EINTERNAL)
	}
	s := rt.streams[slot]
	s.open = true
	s.mode = mode
	s.fdnum = fdnum
	s.bufMode = bm
	if bm != Unbuffered {
		s.buf = make([]byte, rt.cfg.BufSize)
		s.bufOwned = true
	}
}

// Stdin returns the stream bound to slot 0.
func (rt *Runtime) Stdin() *Stream { return rt.streams[0] }

// Stdout returns the stream bound to slot 1.
func (rt *Runtime) Stdout() *Stream { return rt.streams[1] }

// Stderr returns the stream bound to slot 2.
func (rt *Runtime) Stderr() *Stream { return rt.streams[2] }

// Namespace exposes the runtime's file namespace.
func (rt *Runtime) Namespace() *kern.Namespace { return rt.ns }

// Descriptors exposes the runtime's descriptor table.
func (rt *Runtime) Descriptors() *fd.Table { return rt.fds }

// claimSlot scans the table for an unused, lockable slot and returns it with
// its lock held. The three standard slots are never free, so scanning starts
// past them.
func (rt *Runtime) claimSlot() (*Stream, error) {
	for _, s := range rt.streams[3:] {
		if !s.lk.TryLock() {
			continue
		}
		if s.open {
			s.lk.Unlock()
			continue
		}
		return s, nil
	}
	return nil, errno.EMFILE
}

// Slot returns the stream's position in the table.
func (s *Stream) Slot() int { return s.slot }

// Fileno returns the descriptor backing the stream.
func (s *Stream) Fileno() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open {
		return -1
	}
	return s.fdnum
}

// Lockf acquires the stream lock for a multi-operation critical section
// (flockfile). Use the *Unlocked operation variants while holding it.
func (s *Stream) Lockf() { s.lk.Lock() }

// TryLockf attempts to acquire the stream lock without spinning.
func (s *Stream) TryLockf() bool { return s.lk.TryLock() }

// Unlockf releases the stream lock (funlockfile).
func (s *Stream) Unlockf() { s.lk.Unlock() }

// EOF reports the sticky end-of-file flag (feof).
func (s *Stream) EOF() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.eof
}

// Err reports the sticky error flag (ferror).
func (s *Stream) Err() bool {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.ioerr
}

// ClearErr resets both the end-of-file and error flags (clearerr).
func (s *Stream) ClearErr() {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.eof = false
	s.ioerr = false
}

// commitWidth records the stream's first narrow or wide operation. A
// mismatch with an earlier commitment fails with EINVAL and sets the error
// flag.
func (s *Stream) commitWidth(w CharWidth) error {
	switch s.width {
	case WidthUnset:
		s.width = w
		return nil
	case w:
		return nil
	default:
		s.ioerr = true
		return errno.EINVAL
	}
}

// Width reports the stream's character-width commitment (fwide, read side).
func (s *Stream) Width() CharWidth {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.width
}

// unread reports the bytes sitting between the caller and the kernel cursor:
// unconsumed read-ahead plus pushback.
func (s *Stream) unread() int {
	return (s.rlen - s.rpos) + s.pushlen
}

// dropReadahead forgets buffered read-ahead and pushback. Callers that need
// the kernel cursor to match the logical position must rewind it first; see
// seekLocked.
func (s *Stream) dropReadahead() {
	s.rpos = 0
	s.rlen = 0
	s.pushlen = 0
}

func (s *Stream) trace(op, detail string, fields ...zap.Field) {
	if glog.L != nil {
		fields = append(fields, glog.Slot(s.slot), glog.Fd(s.fdnum))
		glog.L.Trace("stdio", op, detail, fields...)
	}
}
