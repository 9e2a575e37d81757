package stdio

import (
	"io"
	"unicode/utf8"

	"github.com/phoenixrt/phostdio/internal/errno"
)

// Putwc writes one rune as UTF-8 (fputwc). The first wide operation commits
// the stream to wide orientation; a stream already committed narrow rejects
// it with EINVAL.
func (s *Stream) Putwc(r rune) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open || s.mode&ioWrite == 0 {
		return errno.EBADF
	}
	if err := s.commitWidth(WidthWide); err != nil {
		return err
	}
	if !utf8.ValidRune(r) {
		s.ioerr = true
		return errno.EILSEQ
	}
	var enc [utf8.UTFMax]byte
	n := utf8.EncodeRune(enc[:], r)
	for i := 0; i < n; i++ {
		if err := s.putcRaw(enc[i]); err != nil {
			return err
		}
	}
	return nil
}

// Getwc reads one UTF-8 encoded rune (fgetwc). A byte sequence that does not
// form a valid rune is an encoding error: the stream's error flag is set and
// EILSEQ returned, with the offending bytes consumed.
func (s *Stream) Getwc() (rune, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open || s.mode&ioRead == 0 {
		return 0, errno.EBADF
	}
	if err := s.commitWidth(WidthWide); err != nil {
		return 0, err
	}

	var seq [utf8.UTFMax]byte
	n := 0
	for {
		c, err := s.getcRaw()
		if err != nil {
			if err == io.EOF && n > 0 {
				// Truncated sequence at end of input.
				s.ioerr = true
				return 0, errno.EILSEQ
			}
			return 0, err
		}
		seq[n] = c
		n++
		if r, size := utf8.DecodeRune(seq[:n]); r != utf8.RuneError || size > 1 {
			return r, nil
		}
		if n == 1 && seq[0] < utf8.RuneSelf {
			return rune(seq[0]), nil
		}
		if !couldExtend(seq[:n]) || n == utf8.UTFMax {
			s.ioerr = true
			return 0, errno.EILSEQ
		}
	}
}

// couldExtend reports whether p is a prefix of some valid UTF-8 encoding.
func couldExtend(p []byte) bool {
	if len(p) == 0 {
		return true
	}
	lead := p[0]
	var want int
	switch {
	case lead < 0x80:
		want = 1
	case lead >= 0xC2 && lead <= 0xDF:
		want = 2
	case lead >= 0xE0 && lead <= 0xEF:
		want = 3
	case lead >= 0xF0 && lead <= 0xF4:
		want = 4
	default:
		return false
	}
	if len(p) > want {
		return false
	}
	for _, c := range p[1:] {
		if c < 0x80 || c > 0xBF {
			return false
		}
	}
	return true
}

// getcRaw reads one byte without re-committing orientation; the caller holds
// the lock and has already committed wide.
func (s *Stream) getcRaw() (byte, error) {
	if s.pushlen > 0 {
		s.pushlen--
		return s.pushback[s.pushlen], nil
	}
	if s.wlen > 0 {
		if err := s.flushLocked(); err != nil {
			return 0, err
		}
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

// putcRaw writes one byte without re-committing orientation.
func (s *Stream) putcRaw(c byte) error {
	if n := s.unread(); n > 0 {
		if _, err := s.rt.fds.Seek(s.fdnum, int64(-n), SeekCur); err != nil && err != errno.ESPIPE {
			s.ioerr = true
			return err
		}
		s.dropReadahead()
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

// Ungetwc pushes one rune back as its UTF-8 bytes (ungetwc). Multi-byte
// runes need the whole sequence to fit the pushback area.
func (s *Stream) Ungetwc(r rune) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	if !s.open || s.mode&ioRead == 0 {
		return errno.EBADF
	}
	if err := s.commitWidth(WidthWide); err != nil {
		return err
	}
	if !utf8.ValidRune(r) {
		return errno.EILSEQ
	}
	var enc [utf8.UTFMax]byte
	n := utf8.EncodeRune(enc[:], r)
	if s.pushlen+n > len(s.pushback) {
		return errno.EINVAL
	}
	// Bytes go in reversed so reads pop them back in encoding order.
	for i := n - 1; i >= 0; i-- {
		s.pushback[s.pushlen] = enc[i]
		s.pushlen++
	}
	s.eof = false
	return nil
}
