package stdio

import (
	"bytes"
	"io"
	"testing"

	"github.com/phoenixrt/phostdio/internal/errno"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, err := rt.Open("/data/msg", "w")
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	payload := []byte("the quick brown fox jumps over the lazy dog")
	n, err := w.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("write = %d, %v", n, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, err := rt.Open("/data/msg", "r")
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	got := make([]byte, len(payload)+16)
	n, err = r.Read(got)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got[:n], payload) {
		t.Fatalf("read = %q, want %q", got[:n], payload)
	}
	if !r.EOF() {
		t.Fatal("short read did not set EOF")
	}
}

func TestAppendMode(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	for _, part := range []string{"one ", "two"} {
		s, err := rt.Open("/data/log", "a")
		if err != nil {
			t.Fatalf("open append: %v", err)
		}
		if _, err := s.WriteString(part); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	r, err := rt.Open("/data/log", "r")
	if err != nil {
		t.Fatalf("open read: %v", err)
	}
	buf := make([]byte, 32)
	n, _ := r.Read(buf)
	if string(buf[:n]) != "one two" {
		t.Fatalf("appended file = %q", buf[:n])
	}
}

func TestPushbackOrderAndLimit(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/p", "w")
	w.WriteString("Z")
	w.Close()

	r, err := rt.Open("/data/p", "r")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, c := range []byte{'a', 'b', 'c', 'd'} {
		if err := r.Ungetc(c); err != nil {
			t.Fatalf("ungetc %q: %v", c, err)
		}
	}
	if err := r.Ungetc('e'); err != errno.EINVAL {
		t.Fatalf("ungetc past limit = %v, want EINVAL", err)
	}
	// Most recently pushed comes back first.
	want := []byte{'d', 'c', 'b', 'a', 'Z'}
	for _, wc := range want {
		c, err := r.Getc()
		if err != nil {
			t.Fatalf("getc: %v", err)
		}
		if c != wc {
			t.Fatalf("getc = %q, want %q", c, wc)
		}
	}
	if _, err := r.Getc(); err != io.EOF {
		t.Fatalf("getc at end = %v, want EOF", err)
	}
}

func TestUngetcClearsEOF(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/e", "w")
	w.WriteString("x")
	w.Close()

	r, _ := rt.Open("/data/e", "r")
	if _, err := r.Getc(); err != nil {
		t.Fatalf("getc: %v", err)
	}
	if _, err := r.Getc(); err != io.EOF {
		t.Fatalf("getc = %v, want EOF", err)
	}
	if !r.EOF() {
		t.Fatal("EOF flag not set")
	}
	if err := r.Ungetc('q'); err != nil {
		t.Fatalf("ungetc: %v", err)
	}
	if r.EOF() {
		t.Fatal("ungetc did not clear EOF flag")
	}
	if c, err := r.Getc(); err != nil || c != 'q' {
		t.Fatalf("getc = %q, %v", c, err)
	}
}

func TestGetsStopsAtNewline(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/l", "w")
	w.WriteString("first\nsecond")
	w.Close()

	r, _ := rt.Open("/data/l", "r")
	buf := make([]byte, 32)
	n, err := r.Gets(buf)
	if err != nil {
		t.Fatalf("gets: %v", err)
	}
	if string(buf[:n]) != "first\n" {
		t.Fatalf("gets = %q", buf[:n])
	}
	n, err = r.Gets(buf)
	if err != nil || string(buf[:n]) != "second" {
		t.Fatalf("gets = %q, %v", buf[:n], err)
	}
	// At end of input the destination is untouched.
	buf[0] = '!'
	n, err = r.Gets(buf)
	if err != io.EOF || n != 0 {
		t.Fatalf("gets at end = %d, %v", n, err)
	}
	if buf[0] != '!' {
		t.Fatal("gets at end touched the destination")
	}
}

func TestGetsHonorsCapacity(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/cap", "w")
	w.WriteString("abcdefgh\n")
	w.Close()

	r, _ := rt.Open("/data/cap", "r")
	buf := make([]byte, 4)
	n, err := r.Gets(buf)
	if err != nil || string(buf[:n]) != "abcd" {
		t.Fatalf("gets = %q, %v", buf[:n], err)
	}
}

func TestGetDelimGrows(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	long := bytes.Repeat([]byte("x"), 10000)
	w, _ := rt.Open("/data/big", "w")
	w.Write(long)
	w.WriteString(";tail")
	w.Close()

	r, _ := rt.Open("/data/big", "r")
	var line []byte
	n, err := r.GetDelim(&line, ';')
	if err != nil {
		t.Fatalf("getdelim: %v", err)
	}
	if n != len(long)+1 || line[n-1] != ';' {
		t.Fatalf("getdelim = %d bytes, last %q", n, line[n-1])
	}
	n, err = r.GetLine(&line)
	if err != nil || string(line[:n]) != "tail" {
		t.Fatalf("getline = %q, %v", line[:n], err)
	}
	if _, err := r.GetLine(&line); err != io.EOF {
		t.Fatalf("getline at end = %v, want EOF", err)
	}
}

func TestLineBufferedFlushOnNewline(t *testing.T) {
	rt, out, _ := newTestRuntime("")
	stdout := rt.Stdout()
	if _, err := stdout.WriteString("partial"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("line-buffered stream flushed early: %q", out.String())
	}
	if _, err := stdout.WriteString(" line\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.String() != "partial line\n" {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestUnbufferedStderr(t *testing.T) {
	rt, _, errOut := newTestRuntime("")
	if _, err := rt.Stderr().WriteString("oops"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if errOut.String() != "oops" {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestFlushAll(t *testing.T) {
	rt, out, _ := newTestRuntime("")
	a, _ := rt.Open("/data/a", "w")
	a.WriteString("buffered-a")
	rt.Stdout().WriteString("buffered-out")

	if err := rt.Flush(nil); err != nil {
		t.Fatalf("flush all: %v", err)
	}
	if out.String() != "buffered-out" {
		t.Fatalf("stdout after flush = %q", out.String())
	}
	r, _ := rt.Open("/data/a", "r")
	buf := make([]byte, 32)
	n, _ := r.Read(buf)
	if string(buf[:n]) != "buffered-a" {
		t.Fatalf("file after flush = %q", buf[:n])
	}
}

func TestPipeStreams(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	r, w, err := rt.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if _, err := w.WriteString("over the pipe"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "over the pipe" {
		t.Fatalf("read = %q, %v", buf[:n], err)
	}
	if n, _ = r.Read(buf); n != 0 || !r.EOF() {
		t.Fatalf("read after writer close = %d, eof=%v", n, r.EOF())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close reader: %v", err)
	}
}

func TestPipeBrokenWrite(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	r, w, err := rt.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close reader: %v", err)
	}
	if err := w.SetVbuf(nil, Unbuffered, 0); err != nil {
		t.Fatalf("setvbuf: %v", err)
	}
	if _, err := w.WriteString("nobody listening"); err != errno.EPIPE {
		t.Fatalf("write to broken pipe = %v, want EPIPE", err)
	}
	if !w.Err() {
		t.Fatal("broken pipe did not set error flag")
	}
}

func TestSeekOnPipeFails(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	r, w, err := rt.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if err := r.Seek(0, SeekSet); err != errno.ESPIPE {
		t.Fatalf("seek on pipe = %v, want ESPIPE", err)
	}
}

func TestReadWriteSwitchOnRWStream(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/rw", "w")
	w.WriteString("0123456789")
	w.Close()

	s, err := rt.Open("/data/rw", "r+")
	if err != nil {
		t.Fatalf("open r+: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "0123" {
		t.Fatalf("read = %q", buf)
	}
	// Writing after a read continues at the logical position even though the
	// stream read ahead further.
	if _, err := s.Write([]byte("AB")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	r, _ := rt.Open("/data/rw", "r")
	got := make([]byte, 16)
	n, _ := r.Read(got)
	if string(got[:n]) != "0123AB6789" {
		t.Fatalf("file = %q", got[:n])
	}
}
