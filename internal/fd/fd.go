// Package fd implements the process's file-descriptor table: a fixed-size
// arena mapping small integer handles to kernel I/O objects.
//
// Slots are claimed with a single atomic compare-and-swap on the entry's tag
// (unused -> kind) and released with an atomic store back to unused, so
// concurrent allocators never double-claim a slot. That CAS is the table's
// only concurrency contract; operations on distinct live descriptors are
// serialized only as far as the underlying kernel object serializes them.
package fd

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/internal/kern"
	glog "github.com/phoenixrt/phostdio/internal/log"
)

// Kind tags a descriptor-table entry.
type Kind int32

const (
	KindNone Kind = iota
	KindPipeReader
	KindPipeWriter
	KindFile
	KindHost
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPipeReader:
		return "pipe-reader"
	case KindPipeWriter:
		return "pipe-writer"
	case KindFile:
		return "file"
	case KindHost:
		return "host"
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// Descriptor flags (per-descriptor, not shared by dup).
const (
	CloseOnExec = 1 << 0
)

// Status flags (shared semantics with POSIX file status flags).
const (
	NonBlock = 1 << 0
	Append   = 1 << 1
)

// Seek origins.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Blocked pipe operations spin with a yield for pipeSpin, then fall back to
// timed sleeps so a long-blocked thread stops burning the processor. Closing
// the descriptor wakes the sleep through the entry's stop channel.
const (
	pipeSpin = 50 * time.Microsecond
	pipeWait = 100 * time.Microsecond
)

type entry struct {
	tag     atomic.Int32
	fdFlags atomic.Int32
	stFlags atomic.Int32

	// Exactly one of these is set while the tag is live; which one is implied
	// by the tag.
	reader *kern.PipeReader
	writer *kern.PipeWriter
	file   *kern.Handle
	hostR  io.Reader
	hostW  io.Writer

	// stop closes when a pipe descriptor is closed, waking blocked sleeps.
	stop chan struct{}
}

// Table is a fixed-capacity descriptor arena. The zero value is unusable;
// create one with NewTable.
type Table struct {
	entries []entry
}

// NewTable creates a table with the given number of slots (OPEN_MAX).
func NewTable(capacity int) *Table {
	return &Table{entries: make([]entry, capacity)}
}

// Cap returns the table's slot count.
func (t *Table) Cap() int { return len(t.entries) }

// alloc scans for a free slot and claims it with a compare-and-swap.
func (t *Table) alloc(kind Kind) (int, error) {
	for i := range t.entries {
		if t.entries[i].tag.CompareAndSwap(int32(KindNone), int32(kind)) {
			return i, nil
		}
	}
	return -1, errno.EMFILE
}

// free releases a slot back to the pool after tearing down its kernel object.
func (t *Table) free(fd int) {
	if fd < 0 || fd >= len(t.entries) {
		return
	}
	e := &t.entries[fd]
	e.reader = nil
	e.writer = nil
	e.file = nil
	e.hostR = nil
	e.hostW = nil
	e.stop = nil
	e.fdFlags.Store(0)
	e.stFlags.Store(0)
	e.tag.Store(int32(KindNone))
}

// lookup returns the entry for fd if it is live and of one of the wanted
// kinds (no kinds means any live kind).
func (t *Table) lookup(fd int, want ...Kind) (*entry, Kind, error) {
	if fd < 0 || fd >= len(t.entries) {
		return nil, KindNone, errno.EBADF
	}
	e := &t.entries[fd]
	k := Kind(e.tag.Load())
	if k == KindNone {
		return nil, KindNone, errno.EBADF
	}
	if len(want) == 0 {
		return e, k, nil
	}
	for _, w := range want {
		if k == w {
			return e, k, nil
		}
	}
	return nil, k, errno.EBADF
}

// NewPipe creates a pipe and binds its endpoints to two fresh descriptors,
// returning (reader, writer). On slot exhaustion both endpoints are torn
// down and EMFILE is returned.
func (t *Table) NewPipe(capacity int) (int, int, error) {
	r, w := kern.NewPipe(capacity)

	rfd, err := t.alloc(KindPipeReader)
	if err != nil {
		r.Close()
		w.Close()
		return -1, -1, err
	}
	wfd, err := t.alloc(KindPipeWriter)
	if err != nil {
		t.free(rfd)
		r.Close()
		w.Close()
		return -1, -1, err
	}

	t.entries[rfd].reader = r
	t.entries[rfd].stop = make(chan struct{})
	t.entries[wfd].writer = w
	t.entries[wfd].stop = make(chan struct{})
	if glog.L != nil {
		glog.L.Trace("fd", "pipe", fmt.Sprintf("rfd=%d wfd=%d", rfd, wfd))
	}
	return rfd, wfd, nil
}

// OpenFile opens path in the namespace and binds a cursor to a descriptor.
func (t *Table) OpenFile(ns *kern.Namespace, path string, create, trunc, appnd bool) (int, error) {
	f, err := ns.Open(path, create, trunc)
	if err != nil {
		return -1, errno.ENOENT
	}
	fd, err := t.alloc(KindFile)
	if err != nil {
		return -1, err
	}
	t.entries[fd].file = kern.OpenHandle(f, appnd)
	if appnd {
		for {
			old := t.entries[fd].stFlags.Load()
			if t.entries[fd].stFlags.CompareAndSwap(old, old|Append) {
				break
			}
		}
	}
	return fd, nil
}

// OpenHost binds host-process streams (the Go side's stdin/stdout) to a
// descriptor. Host descriptors are not seekable.
func (t *Table) OpenHost(r io.Reader, w io.Writer) (int, error) {
	fd, err := t.alloc(KindHost)
	if err != nil {
		return -1, err
	}
	t.entries[fd].hostR = r
	t.entries[fd].hostW = w
	return fd, nil
}

// Dup binds a second descriptor to the same kernel object. Pipe endpoints
// gain a reference; file descriptors share the same cursor handle.
func (t *Table) Dup(fd int) (int, error) {
	e, k, err := t.lookup(fd)
	if err != nil {
		return -1, err
	}
	nfd, err := t.alloc(k)
	if err != nil {
		return -1, err
	}
	ne := &t.entries[nfd]
	switch k {
	case KindPipeReader:
		ne.reader = e.reader.Clone()
		ne.stop = make(chan struct{})
	case KindPipeWriter:
		ne.writer = e.writer.Clone()
		ne.stop = make(chan struct{})
	case KindFile:
		ne.file = e.file
	case KindHost:
		ne.hostR = e.hostR
		ne.hostW = e.hostW
	}
	ne.stFlags.Store(e.stFlags.Load())
	return nfd, nil
}

// Close releases fd. The tag is swapped out atomically, so a concurrent
// close of the same descriptor fails with EBADF instead of double-freeing.
func (t *Table) Close(fd int) error {
	if fd < 0 || fd >= len(t.entries) {
		return errno.EBADF
	}
	e := &t.entries[fd]
	switch Kind(e.tag.Swap(int32(KindNone))) {
	case KindNone:
		return errno.EBADF
	case KindPipeReader:
		e.reader.Close()
		close(e.stop)
	case KindPipeWriter:
		e.writer.Close()
		close(e.stop)
	case KindFile, KindHost:
		// Nothing kernel-side to release; the namespace owns file bodies.
	default:
		// Unrecognized descriptor kind: almost certainly a bug in this library.
		return errno.EINTERNAL
	}
	e.reader = nil
	e.writer = nil
	e.file = nil
	e.hostR = nil
	e.hostW = nil
	e.stop = nil
	e.fdFlags.Store(0)
	e.stFlags.Store(0)
	if glog.L != nil {
		glog.L.Trace("fd", "close", "", glog.Fd(fd))
	}
	return nil
}

// Read transfers up to len(p) bytes from fd.
//
// End of file is (0, nil), matching the kernel read contract. Reads on an
// empty-but-open pipe block by spinning with a yield, unless the descriptor
// has NonBlock set, in which case they fail with EAGAIN. A descriptor closed
// out from under a blocked read fails with EINTR.
func (t *Table) Read(fd int, p []byte) (int, error) {
	e, k, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	switch k {
	case KindPipeReader:
		// Captured once: Close nils the entry fields while a blocked read may
		// still be mid-loop.
		reader, stop := e.reader, e.stop
		start := kern.Now()
		for {
			n, rerr := reader.Read(p)
			if rerr == kern.ErrNoWriters {
				return 0, nil // EOF
			}
			if n > 0 {
				return n, nil
			}
			if e.stFlags.Load()&NonBlock != 0 {
				return 0, errno.EAGAIN
			}
			if Kind(e.tag.Load()) != KindPipeReader {
				return 0, errno.EINTR
			}
			if kern.Now()-start < int64(pipeSpin) {
				kern.Yield()
				continue
			}
			if !kern.Sleep(pipeWait, stop) {
				return 0, errno.EINTR
			}
		}
	case KindFile:
		return e.file.Read(p)
	case KindHost:
		if e.hostR == nil {
			return 0, errno.EBADF
		}
		n, rerr := e.hostR.Read(p)
		if rerr == io.EOF {
			return n, nil
		}
		if rerr != nil {
			return n, errno.EIO
		}
		return n, nil
	default:
		return 0, errno.EBADF
	}
}

// Write transfers all of p to fd, blocking (spin with yield) while a pipe is
// full but still has readers. With NonBlock set, a write that cannot make
// progress fails with EAGAIN; partial progress is reported as a short count.
func (t *Table) Write(fd int, p []byte) (int, error) {
	e, k, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}

	switch k {
	case KindPipeWriter:
		writer, stop := e.writer, e.stop
		start := kern.Now()
		written := 0
		for written < len(p) {
			n, werr := writer.Write(p[written:])
			if werr == kern.ErrNoReaders {
				return written, errno.EPIPE
			}
			written += n
			if written == len(p) {
				break
			}
			if n == 0 {
				if e.stFlags.Load()&NonBlock != 0 {
					if written > 0 {
						return written, nil
					}
					return 0, errno.EAGAIN
				}
				if Kind(e.tag.Load()) != KindPipeWriter {
					return written, errno.EINTR
				}
				if kern.Now()-start < int64(pipeSpin) {
					kern.Yield()
					continue
				}
				if !kern.Sleep(pipeWait, stop) {
					return written, errno.EINTR
				}
			}
		}
		return written, nil
	case KindFile:
		return e.file.Write(p)
	case KindHost:
		if e.hostW == nil {
			return 0, errno.EBADF
		}
		n, werr := e.hostW.Write(p)
		if werr != nil {
			return n, errno.EIO
		}
		return n, nil
	default:
		return 0, errno.EBADF
	}
}

// Seek repositions a file descriptor's cursor and returns the new offset.
// Pipes and host streams fail with ESPIPE. Offsets that would land outside
// [0, math.MaxInt64] fail with EOVERFLOW (negative results are EINVAL) and
// leave the cursor unchanged.
func (t *Table) Seek(fd int, offset int64, whence int) (int64, error) {
	e, k, err := t.lookup(fd)
	if err != nil {
		return -1, err
	}
	if k != KindFile {
		return -1, errno.ESPIPE
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = e.file.Offset()
	case SeekEnd:
		base = e.file.Len()
	default:
		return -1, errno.EINVAL
	}

	if offset > 0 && base > math.MaxInt64-offset {
		return -1, errno.EOVERFLOW
	}
	pos := base + offset
	if pos < 0 {
		return -1, errno.EINVAL
	}
	e.file.Seek(pos)
	return pos, nil
}

// Length returns the total length of a file descriptor's underlying file.
func (t *Table) Length(fd int) (int64, error) {
	e, _, err := t.lookup(fd, KindFile)
	if err != nil {
		return -1, err
	}
	return e.file.Len(), nil
}

// KindOf reports the live kind of fd, or KindNone.
func (t *Table) KindOf(fd int) Kind {
	if fd < 0 || fd >= len(t.entries) {
		return KindNone
	}
	return Kind(t.entries[fd].tag.Load())
}

// SetStatusFlags replaces fd's file status flags (NonBlock, Append).
func (t *Table) SetStatusFlags(fd int, flags int32) error {
	e, _, err := t.lookup(fd)
	if err != nil {
		return err
	}
	e.stFlags.Store(flags)
	return nil
}

// StatusFlags returns fd's file status flags.
func (t *Table) StatusFlags(fd int) (int32, error) {
	e, _, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	return e.stFlags.Load(), nil
}

// SetDescriptorFlags replaces fd's descriptor flags (CloseOnExec).
func (t *Table) SetDescriptorFlags(fd int, flags int32) error {
	e, _, err := t.lookup(fd)
	if err != nil {
		return err
	}
	e.fdFlags.Store(flags)
	return nil
}

// DescriptorFlags returns fd's descriptor flags.
func (t *Table) DescriptorFlags(fd int) (int32, error) {
	e, _, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	return e.fdFlags.Load(), nil
}
