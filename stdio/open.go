package stdio

import (
	"fmt"

	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/internal/fd"
	glog "github.com/phoenixrt/phostdio/internal/log"
)

// openMode is a parsed POSIX fopen mode string.
type openMode struct {
	io     ioMode
	create bool
	trunc  bool
	appnd  bool
}

// parseMode parses the POSIX fopen grammar: 'r', 'w', or 'a', optionally
// followed by 'b' and/or '+' in either order. 'b' is accepted and ignored;
// this environment does not distinguish text from binary.
func parseMode(mode string) (openMode, error) {
	if mode == "" {
		return openMode{}, errno.EINVAL
	}
	var m openMode
	switch mode[0] {
	case 'r':
		m.io = ioRead
	case 'w':
		m.io = ioWrite
		m.create = true
		m.trunc = true
	case 'a':
		m.io = ioWrite
		m.create = true
		m.appnd = true
	default:
		return openMode{}, errno.EINVAL
	}
	for _, c := range mode[1:] {
		switch c {
		case 'b':
			// ignored
		case '+':
			m.io = ioRW
		default:
			return openMode{}, errno.EINVAL
		}
	}
	return m, nil
}

// Open opens path with a POSIX mode string and binds it to a free stream
// slot (fopen). It is implemented by claiming a slot and reopening it in
// place.
func (rt *Runtime) Open(path, mode string) (*Stream, error) {
	s, err := rt.claimSlot()
	if err != nil {
		return nil, err
	}
	defer s.lk.Unlock()
	if err := s.reopenLocked(path, mode); err != nil {
		return nil, err
	}
	return s, nil
}

// Reopen flushes and closes the stream's current file, then reinitializes
// the same slot with the new path and mode (freopen). An empty path reuses
// the stream's previous path.
func (s *Stream) Reopen(path, mode string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if path == "" {
		if s.path == "" {
			return errno.EINVAL
		}
		path = s.path
	}
	return s.reopenLocked(path, mode)
}

// reopenLocked tears down whatever the slot currently holds, tolerating a
// descriptor that is already gone, then opens path into it.
func (s *Stream) reopenLocked(path, mode string) error {
	m, err := parseMode(mode)
	if err != nil {
		return err
	}

	if s.open {
		// Flush failures must not keep the slot stuck half-closed; the close
		// proceeds regardless. EBADF and EINTR from the old descriptor are
		// tolerated by design.
		_ = s.flushLocked()
		_ = s.rt.fds.Close(s.fdnum)
		s.releaseBufferLocked()
		s.open = false
	}

	fdnum, err := s.rt.fds.OpenFile(s.rt.ns, path, m.create, m.trunc, m.appnd)
	if err != nil {
		return err
	}

	s.initLocked(fdnum, path, m.io, FullyBuffered)
	s.trace("fopen", fmt.Sprintf("mode=%s", mode), glog.Path(path))
	return nil
}

// Fdopen binds an already-open descriptor to a free stream slot. The mode
// must be compatible with how the descriptor was created; it does not
// re-open or truncate anything.
func (rt *Runtime) Fdopen(fdnum int, mode string) (*Stream, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	if rt.fds.KindOf(fdnum) == fd.KindNone {
		return nil, errno.EBADF
	}
	s, err := rt.claimSlot()
	if err != nil {
		return nil, err
	}
	defer s.lk.Unlock()
	s.initLocked(fdnum, "", m.io, FullyBuffered)
	return s, nil
}

// initLocked resets every stream field for a fresh open.
func (s *Stream) initLocked(fdnum int, path string, mode ioMode, bm BufferMode) {
	s.open = true
	s.mode = mode
	s.width = WidthUnset
	s.fdnum = fdnum
	s.path = path
	s.eof = false
	s.ioerr = false
	s.wlen = 0
	s.dropReadahead()
	s.bufMode = bm
	if bm != Unbuffered {
		s.buf = make([]byte, s.rt.cfg.BufSize)
		s.bufOwned = true
	} else {
		s.buf = nil
		s.bufOwned = false
	}
}

func (s *Stream) releaseBufferLocked() {
	// Owned buffers belong to the stream; externally supplied ones belong to
	// the caller and are merely forgotten.
	s.buf = nil
	s.bufOwned = false
	s.wlen = 0
	s.dropReadahead()
}

// Close flushes the stream, releases its descriptor, and returns the slot to
// the pool (fclose). The standard streams' slots are flushed but never
// freed.
func (s *Stream) Close() error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open {
		return errno.EBADF
	}

	ferr := s.flushLocked()
	if s.slot < 3 {
		return ferr
	}

	cerr := s.rt.fds.Close(s.fdnum)
	s.releaseBufferLocked()
	s.open = false
	s.width = WidthUnset
	s.path = ""
	s.trace("fclose", "")

	if ferr != nil {
		return ferr
	}
	return cerr
}

// SetVbuf reconfigures the stream's buffering (setvbuf). Requesting
// unbuffered mode clears any buffer; requesting buffered mode with a nil
// buffer makes the stream allocate and own one of the given size. Pending
// buffered data is flushed or dropped first.
func (s *Stream) SetVbuf(buf []byte, mode BufferMode, size int) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open {
		return errno.EBADF
	}

	if err := s.flushLocked(); err != nil {
		return err
	}
	s.dropReadahead()

	switch mode {
	case Unbuffered:
		s.releaseBufferLocked()
		s.bufMode = Unbuffered
		return nil
	case LineBuffered, FullyBuffered:
		if buf != nil {
			if size <= 0 || size > len(buf) {
				return errno.EINVAL
			}
			s.buf = buf[:size]
			s.bufOwned = false
		} else {
			if size <= 0 {
				return errno.EINVAL
			}
			s.buf = make([]byte, size)
			s.bufOwned = true
		}
		s.bufMode = mode
		s.trace("setvbuf", fmt.Sprintf("mode=%d", mode), glog.Size(size))
		return nil
	default:
		return errno.EINVAL
	}
}

// SetBuf is the setbuf convenience: fully buffered with the caller's buffer,
// or unbuffered when buf is nil.
func (s *Stream) SetBuf(buf []byte) error {
	if buf == nil {
		return s.SetVbuf(nil, Unbuffered, 0)
	}
	return s.SetVbuf(buf, FullyBuffered, len(buf))
}

// Pipe creates a pipe and wraps both ends in streams: the returned pair is
// (reader, writer).
func (rt *Runtime) Pipe() (*Stream, *Stream, error) {
	rfd, wfd, err := rt.fds.NewPipe(rt.cfg.PipeCapacity)
	if err != nil {
		return nil, nil, err
	}
	r, err := rt.Fdopen(rfd, "r")
	if err != nil {
		rt.fds.Close(rfd)
		rt.fds.Close(wfd)
		return nil, nil, err
	}
	w, err := rt.Fdopen(wfd, "w")
	if err != nil {
		r.Close()
		rt.fds.Close(wfd)
		return nil, nil, err
	}
	return r, w, nil
}

// Remove unlinks a path from the runtime's namespace (remove).
func (rt *Runtime) Remove(path string) error {
	if err := rt.ns.Remove(path); err != nil {
		return errno.ENOENT
	}
	return nil
}
