package stdio

import (
	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/internal/fd"
)

// Seek whence values, mirroring the descriptor table's.
const (
	SeekSet = fd.SeekSet
	SeekCur = fd.SeekCur
	SeekEnd = fd.SeekEnd
)

// Seek repositions the stream (fseek). Buffered writes are flushed first and
// relative seeks are adjusted for read-ahead the caller has not consumed. On
// success the read-ahead, pushback, and EOF flag are discarded; on failure
// the logical position is unchanged.
func (s *Stream) Seek(offset int64, whence int) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.seekLocked(offset, whence)
}

func (s *Stream) seekLocked(offset int64, whence int) error {
	if !s.open {
		return errno.EBADF
	}
	if s.rt.fds.KindOf(s.fdnum) != fd.KindFile {
		return errno.ESPIPE
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	if whence == SeekCur {
		// The kernel cursor sits past the bytes we read ahead; the caller's
		// position does not.
		offset -= int64(s.unread())
	}
	if _, err := s.rt.fds.Seek(s.fdnum, offset, whence); err != nil {
		return err
	}
	s.dropReadahead()
	s.eof = false
	return nil
}

// Tell reports the stream's logical position (ftell): the kernel offset plus
// unflushed writes, minus unconsumed read-ahead.
func (s *Stream) Tell() (int64, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open {
		return -1, errno.EBADF
	}
	base, err := s.rt.fds.Seek(s.fdnum, 0, fd.SeekCur)
	if err != nil {
		return -1, err
	}
	return base + int64(s.wlen) - int64(s.unread()), nil
}

// Rewind seeks to the start and clears the error flag (rewind).
func (s *Stream) Rewind() {
	s.lk.Lock()
	defer s.lk.Unlock()
	_ = s.seekLocked(0, SeekSet)
	s.ioerr = false
}
