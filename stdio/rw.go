package stdio

import (
	"bytes"
	"io"

	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/internal/fd"
)

// startRead flips the buffer into read direction, flushing any pending
// writes first, and commits the stream to narrow orientation.
func (s *Stream) startRead() error {
	if !s.open {
		return errno.EBADF
	}
	if s.mode&ioRead == 0 {
		s.ioerr = true
		return errno.EBADF
	}
	if err := s.commitWidth(WidthNarrow); err != nil {
		return err
	}
	if s.wlen > 0 {
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	return nil
}

// startWrite flips the buffer into write direction. Unconsumed read-ahead is
// pushed back onto the descriptor when it supports seeking; on pipes those
// bytes are unrecoverable and are dropped.
func (s *Stream) startWrite() error {
	if !s.open {
		return errno.EBADF
	}
	if s.mode&ioWrite == 0 {
		s.ioerr = true
		return errno.EBADF
	}
	if err := s.commitWidth(WidthNarrow); err != nil {
		return err
	}
	if n := s.unread(); n > 0 {
		if _, err := s.rt.fds.Seek(s.fdnum, int64(-n), fd.SeekCur); err != nil && err != errno.ESPIPE {
			s.ioerr = true
			return err
		}
		s.dropReadahead()
	}
	return nil
}

// flushLocked pushes the write buffer to the descriptor. On a short write the
// unwritten tail is kept at the front of the buffer and the error returned.
func (s *Stream) flushLocked() error {
	if s.wlen == 0 {
		return nil
	}
	n, err := s.rt.fds.Write(s.fdnum, s.buf[:s.wlen])
	if n > 0 && n < s.wlen {
		copy(s.buf, s.buf[n:s.wlen])
	}
	s.wlen -= n
	if err != nil {
		s.ioerr = true
		return err
	}
	return nil
}

// fillLocked performs one descriptor read into the buffer. It never loops;
// on a pipe a single read returns whatever is available, which keeps
// interactive streams responsive.
func (s *Stream) fillLocked() error {
	s.rpos, s.rlen = 0, 0
	n, err := s.rt.fds.Read(s.fdnum, s.buf)
	if err != nil {
		s.ioerr = true
		return err
	}
	if n == 0 {
		s.eof = true
		return io.EOF
	}
	s.rlen = n
	return nil
}

// ReadUnlocked reads up to len(p) bytes without taking the stream lock. The
// caller must hold it via Lockf. Pushback bytes are consumed first, then
// buffered read-ahead, then the descriptor. A short count with a nil error
// means end of input; the EOF flag is set.
func (s *Stream) ReadUnlocked(p []byte) (int, error) {
	if err := s.startRead(); err != nil {
		return 0, err
	}
	total := 0
	for s.pushlen > 0 && total < len(p) {
		s.pushlen--
		p[total] = s.pushback[s.pushlen]
		total++
	}
	for total < len(p) {
		if s.rpos < s.rlen {
			n := copy(p[total:], s.buf[s.rpos:s.rlen])
			s.rpos += n
			total += n
			continue
		}
		rest := p[total:]
		if s.bufMode == Unbuffered || len(rest) >= len(s.buf) {
			// Large or unbuffered reads bypass the stream buffer.
			n, err := s.rt.fds.Read(s.fdnum, rest)
			total += n
			if err != nil {
				s.ioerr = true
				return total, err
			}
			if n == 0 {
				s.eof = true
			}
			return total, nil
		}
		if err := s.fillLocked(); err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
	}
	return total, nil
}

// Read reads up to len(p) bytes from the stream (fread).
func (s *Stream) Read(p []byte) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.ReadUnlocked(p)
}

// WriteUnlocked writes p without taking the stream lock. Buffered data is
// flushed when the buffer fills; line-buffered streams also flush after any
// newline.
func (s *Stream) WriteUnlocked(p []byte) (int, error) {
	if err := s.startWrite(); err != nil {
		return 0, err
	}
	if s.bufMode == Unbuffered {
		n, err := s.rt.fds.Write(s.fdnum, p)
		if err != nil {
			s.ioerr = true
		}
		return n, err
	}

	total := 0
	for total < len(p) {
		rest := p[total:]
		if s.wlen == 0 && len(rest) >= len(s.buf) {
			n, err := s.rt.fds.Write(s.fdnum, rest)
			total += n
			if err != nil {
				s.ioerr = true
				return total, err
			}
			continue
		}
		n := copy(s.buf[s.wlen:], rest)
		s.wlen += n
		total += n
		if s.wlen == len(s.buf) {
			if err := s.flushLocked(); err != nil {
				return total, err
			}
		}
	}
	if s.bufMode == LineBuffered && bytes.IndexByte(p, '\n') >= 0 {
		if err := s.flushLocked(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Write writes p to the stream (fwrite).
func (s *Stream) Write(p []byte) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.WriteUnlocked(p)
}

// WriteString writes the bytes of str (fputs).
func (s *Stream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// Puts writes str followed by a newline (puts).
func (s *Stream) Puts(str string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	n, err := s.WriteUnlocked([]byte(str))
	if err != nil {
		return n, err
	}
	if err := s.putcLocked('\n'); err != nil {
		return n, err
	}
	return n + 1, nil
}

// Flush forces buffered writes out to the descriptor (fflush).
func (s *Stream) Flush() error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open {
		return errno.EBADF
	}
	return s.flushLocked()
}

// Flush flushes one stream, or every open stream when s is nil, matching
// fflush(NULL). The first error is reported; later streams are still
// flushed.
func (rt *Runtime) Flush(s *Stream) error {
	if s != nil {
		return s.Flush()
	}
	var first error
	for _, st := range rt.streams {
		st.lk.Lock()
		if st.open && st.wlen > 0 {
			if err := st.flushLocked(); err != nil && first == nil {
				first = err
			}
		}
		st.lk.Unlock()
	}
	return first
}

// GetcUnlocked reads one byte; the caller holds the lock (getc_unlocked).
func (s *Stream) GetcUnlocked() (byte, error) {
	if err := s.startRead(); err != nil {
		return 0, err
	}
	if s.pushlen > 0 {
		s.pushlen--
		return s.pushback[s.pushlen], nil
	}
	if s.rpos >= s.rlen {
		if s.bufMode == Unbuffered {
			var one [1]byte
			n, err := s.rt.fds.Read(s.fdnum, one[:])
			if err != nil {
				s.ioerr = true
				return 0, err
			}
			if n == 0 {
				s.eof = true
				return 0, io.EOF
			}
			return one[0], nil
		}
		if err := s.fillLocked(); err != nil {
			return 0, err
		}
	}
	c := s.buf[s.rpos]
	s.rpos++
	return c, nil
}

// Getc reads one byte (fgetc).
func (s *Stream) Getc() (byte, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.GetcUnlocked()
}

func (s *Stream) putcLocked(c byte) error {
	if err := s.startWrite(); err != nil {
		return err
	}
	if s.bufMode == Unbuffered {
		_, err := s.rt.fds.Write(s.fdnum, []byte{c})
		if err != nil {
			s.ioerr = true
		}
		return err
	}
	s.buf[s.wlen] = c
	s.wlen++
	if s.wlen == len(s.buf) || (s.bufMode == LineBuffered && c == '\n') {
		return s.flushLocked()
	}
	return nil
}

// PutcUnlocked writes one byte; the caller holds the lock (putc_unlocked).
func (s *Stream) PutcUnlocked(c byte) error { return s.putcLocked(c) }

// Putc writes one byte (fputc).
func (s *Stream) Putc(c byte) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.putcLocked(c)
}

// UngetcUnlocked pushes c back; the caller holds the lock.
func (s *Stream) UngetcUnlocked(c byte) error {
	if !s.open || s.mode&ioRead == 0 {
		return errno.EBADF
	}
	if err := s.commitWidth(WidthNarrow); err != nil {
		return err
	}
	if s.pushlen == len(s.pushback) {
		return errno.EINVAL
	}
	s.pushback[s.pushlen] = c
	s.pushlen++
	s.eof = false
	return nil
}

// Ungetc pushes one byte back onto the stream (ungetc). Pushed-back bytes
// are returned most recent first and clear the EOF flag. The pushback depth
// is small and fixed; a full pushback area rejects the byte.
func (s *Stream) Ungetc(c byte) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.UngetcUnlocked(c)
}

// Gets reads at most len(dst) bytes up to and including a newline (fgets).
// It returns the number of bytes stored. When the stream is already at end
// of input nothing is stored and io.EOF is returned.
func (s *Stream) Gets(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, errno.EINVAL
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	n := 0
	for n < len(dst) {
		c, err := s.GetcUnlocked()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}
		dst[n] = c
		n++
		if c == '\n' {
			break
		}
	}
	return n, nil
}

// GetDelim reads until delim, growing *line as needed (getdelim). The delim
// byte is included in the result. It returns the number of bytes read, or
// io.EOF when the stream is exhausted before any byte is read.
func (s *Stream) GetDelim(line *[]byte, delim byte) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	buf := (*line)[:0]
	for {
		c, err := s.GetcUnlocked()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				*line = buf
				return len(buf), nil
			}
			*line = buf
			return len(buf), err
		}
		buf = append(buf, c)
		if c == delim {
			*line = buf
			return len(buf), nil
		}
	}
}

// GetLine reads one newline-terminated line (getline).
func (s *Stream) GetLine(line *[]byte) (int, error) {
	return s.GetDelim(line, '\n')
}
