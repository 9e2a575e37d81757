package stdio

import (
	"io"
	"math"
	"testing"

	"github.com/phoenixrt/phostdio/internal/errno"
)

func TestSeekAndTell(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/s", "w")
	w.WriteString("hello world")
	w.Close()

	s, err := rt.Open("/data/s", "r")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Seek(6, SeekSet); err != nil {
		t.Fatalf("seek: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := s.Read(buf); err != nil || string(buf) != "world" {
		t.Fatalf("read = %q, %v", buf, err)
	}
	pos, err := s.Tell()
	if err != nil || pos != 11 {
		t.Fatalf("tell = %d, %v, want 11", pos, err)
	}
	if err := s.Seek(-11, SeekEnd); err != nil {
		t.Fatalf("seek end: %v", err)
	}
	if pos, _ = s.Tell(); pos != 0 {
		t.Fatalf("tell after SEEK_END = %d, want 0", pos)
	}
}

func TestTellAccountsForBuffering(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/t", "w")
	w.WriteString("0123456789")
	w.Close()

	s, _ := rt.Open("/data/t", "r")
	if _, err := s.Getc(); err != nil {
		t.Fatalf("getc: %v", err)
	}
	// One byte consumed, even though the stream read the whole file ahead.
	if pos, _ := s.Tell(); pos != 1 {
		t.Fatalf("tell = %d, want 1", pos)
	}
	if err := s.Ungetc('0'); err != nil {
		t.Fatalf("ungetc: %v", err)
	}
	if pos, _ := s.Tell(); pos != 0 {
		t.Fatalf("tell after ungetc = %d, want 0", pos)
	}

	o, _ := rt.Open("/data/t2", "w")
	o.WriteString("abc")
	if pos, _ := o.Tell(); pos != 3 {
		t.Fatalf("tell with pending writes = %d, want 3", pos)
	}
}

func TestRelativeSeekAdjustsForReadahead(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/r", "w")
	w.WriteString("abcdefghij")
	w.Close()

	s, _ := rt.Open("/data/r", "r")
	buf := make([]byte, 2)
	s.Read(buf) // consumed "ab", read ahead to the end
	if err := s.Seek(3, SeekCur); err != nil {
		t.Fatalf("seek cur: %v", err)
	}
	c, err := s.Getc()
	if err != nil || c != 'f' {
		t.Fatalf("getc = %q, %v, want 'f'", c, err)
	}
}

func TestSeekOverflowLeavesPosition(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/o", "w")
	w.WriteString("abcdef")
	w.Close()

	s, _ := rt.Open("/data/o", "r")
	if err := s.Seek(3, SeekSet); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if err := s.Seek(math.MaxInt64, SeekEnd); err != errno.EOVERFLOW {
		t.Fatalf("overflowing seek = %v, want EOVERFLOW", err)
	}
	if pos, _ := s.Tell(); pos != 3 {
		t.Fatalf("position after failed seek = %d, want 3", pos)
	}
	if err := s.Seek(-10, SeekSet); err != errno.EINVAL {
		t.Fatalf("negative seek = %v, want EINVAL", err)
	}
}

func TestSeekClearsEOF(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/c", "w")
	w.WriteString("xy")
	w.Close()

	s, _ := rt.Open("/data/c", "r")
	buf := make([]byte, 8)
	s.Read(buf)
	if _, err := s.Getc(); err != io.EOF {
		t.Fatalf("getc = %v, want EOF", err)
	}
	if !s.EOF() {
		t.Fatal("EOF flag not set")
	}
	if err := s.Seek(0, SeekSet); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if s.EOF() {
		t.Fatal("seek did not clear EOF")
	}
	if c, err := s.Getc(); err != nil || c != 'x' {
		t.Fatalf("getc = %q, %v", c, err)
	}
}

func TestRewindClearsError(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/w", "w")
	w.WriteString("data")
	w.Close()

	s, _ := rt.Open("/data/w", "r")
	// Force the error flag via an orientation conflict.
	if err := s.Putwc('x'); err == nil {
		t.Fatal("write on read-only stream succeeded")
	}
	s.Getc()
	if err := s.Putc('x'); err != errno.EBADF {
		t.Fatalf("putc on read-only = %v, want EBADF", err)
	}
	if !s.Err() {
		t.Fatal("error flag not set")
	}
	s.Rewind()
	if s.Err() {
		t.Fatal("rewind did not clear error flag")
	}
	if c, err := s.Getc(); err != nil || c != 'd' {
		t.Fatalf("getc after rewind = %q, %v", c, err)
	}
}
