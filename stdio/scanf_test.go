package stdio

import (
	"io"
	"testing"
)

func TestSscanfIntegers(t *testing.T) {
	var n int
	cnt, err := Sscanf("42", "%d", &n)
	if err != nil || cnt != 1 || n != 42 {
		t.Fatalf("got %d assigned, n=%d, err=%v", cnt, n, err)
	}

	cnt, err = Sscanf("  -0x1A", "%i", &n)
	if err != nil || cnt != 1 || n != -26 {
		t.Fatalf("radix sniff: %d assigned, n=%d, err=%v", cnt, n, err)
	}

	cnt, err = Sscanf("017", "%i", &n)
	if err != nil || cnt != 1 || n != 15 {
		t.Fatalf("octal sniff: %d assigned, n=%d, err=%v", cnt, n, err)
	}

	cnt, err = Sscanf("ff", "%x", &n)
	if err != nil || cnt != 1 || n != 255 {
		t.Fatalf("hex: %d assigned, n=%d, err=%v", cnt, n, err)
	}

	var u uint8
	cnt, err = Sscanf("200", "%hhu", &u)
	if err != nil || cnt != 1 || u != 200 {
		t.Fatalf("uint8: %d assigned, u=%d, err=%v", cnt, u, err)
	}
}

func TestSscanfWidthLimits(t *testing.T) {
	var a, b int
	cnt, err := Sscanf("12345", "%2d%2d", &a, &b)
	if err != nil || cnt != 2 {
		t.Fatalf("cnt=%d err=%v", cnt, err)
	}
	if a != 12 || b != 34 {
		t.Fatalf("a=%d b=%d, want 12 34", a, b)
	}
}

func TestSscanfMultiple(t *testing.T) {
	var n int
	var word string
	cnt, err := Sscanf("42abc", "%d%s", &n, &word)
	if err != nil || cnt != 2 {
		t.Fatalf("cnt=%d err=%v", cnt, err)
	}
	if n != 42 || word != "abc" {
		t.Fatalf("n=%d word=%q", n, word)
	}
}

func TestSscanfLiteralMismatchStops(t *testing.T) {
	var n int
	cnt, err := Sscanf("a=1", "b=%d", &n)
	if err != nil || cnt != 0 {
		t.Fatalf("cnt=%d err=%v, want 0 assignments", cnt, err)
	}
	cnt, err = Sscanf("x=1 junk y=2", "x=%d y=%d", &n, &n)
	if err != nil || cnt != 1 {
		t.Fatalf("cnt=%d err=%v, want partial 1", cnt, err)
	}
}

func TestSscanfMatchingFailure(t *testing.T) {
	var n int
	cnt, err := Sscanf("abc", "%d", &n)
	if err != nil || cnt != 0 {
		t.Fatalf("cnt=%d err=%v, matching failure is not EOF", cnt, err)
	}
}

func TestSscanfEmptyInputIsEOF(t *testing.T) {
	var n int
	if cnt, err := Sscanf("", "%d", &n); err != io.EOF || cnt != 0 {
		t.Fatalf("cnt=%d err=%v, want EOF", cnt, err)
	}
	if cnt, err := Sscanf("   ", "%d", &n); err != io.EOF || cnt != 0 {
		t.Fatalf("whitespace only: cnt=%d err=%v, want EOF", cnt, err)
	}
	// EOF after an assignment is just a short count.
	var a, b int
	if cnt, err := Sscanf("5", "%d %d", &a, &b); err != nil || cnt != 1 {
		t.Fatalf("cnt=%d err=%v, want 1 and nil", cnt, err)
	}
}

func TestSscanfFloats(t *testing.T) {
	var f float64
	cnt, err := Sscanf("3.14e2", "%f", &f)
	if err != nil || cnt != 1 || f != 314.0 {
		t.Fatalf("cnt=%d f=%v err=%v", cnt, f, err)
	}
	cnt, err = Sscanf("-0.5", "%lf", &f)
	if err != nil || cnt != 1 || f != -0.5 {
		t.Fatalf("cnt=%d f=%v err=%v", cnt, f, err)
	}
	var f32 float32
	cnt, err = Sscanf("inf", "%f", &f32)
	if err != nil || cnt != 1 {
		t.Fatalf("inf: cnt=%d err=%v", cnt, err)
	}
}

func TestSscanfChars(t *testing.T) {
	var c byte
	cnt, err := Sscanf(" x", "%c", &c)
	if err != nil || cnt != 1 || c != ' ' {
		t.Fatalf("%%c must not skip whitespace: cnt=%d c=%q err=%v", cnt, c, err)
	}
	var raw []byte
	cnt, err = Sscanf("abcd", "%3c", &raw)
	if err != nil || cnt != 1 || string(raw) != "abc" {
		t.Fatalf("cnt=%d raw=%q err=%v", cnt, raw, err)
	}
	var r rune
	cnt, err = Sscanf("é", "%lc", &r)
	if err != nil || cnt != 1 || r != 'é' {
		t.Fatalf("wide: cnt=%d r=%q err=%v", cnt, r, err)
	}
}

func TestSscanfScansets(t *testing.T) {
	var s string
	cnt, err := Sscanf("hello world", "%[a-z]", &s)
	if err != nil || cnt != 1 || s != "hello" {
		t.Fatalf("cnt=%d s=%q err=%v", cnt, s, err)
	}
	cnt, err = Sscanf("hello world", "%[^ ]", &s)
	if err != nil || cnt != 1 || s != "hello" {
		t.Fatalf("negated: cnt=%d s=%q err=%v", cnt, s, err)
	}
	var rest string
	cnt, err = Sscanf("ab]cd", "%[]ab]%s", &s, &rest)
	if err != nil || cnt != 2 || s != "ab]" || rest != "cd" {
		t.Fatalf("bracket-first: cnt=%d s=%q rest=%q err=%v", cnt, s, rest, err)
	}
	// Empty match is a matching failure, not an assignment.
	cnt, err = Sscanf("123", "%[a-z]", &s)
	if err != nil || cnt != 0 {
		t.Fatalf("no match: cnt=%d err=%v", cnt, err)
	}
}

func TestSscanfSuppression(t *testing.T) {
	var n int
	cnt, err := Sscanf("10 20", "%*d %d", &n)
	if err != nil || cnt != 1 || n != 20 {
		t.Fatalf("cnt=%d n=%d err=%v", cnt, n, err)
	}
}

func TestSscanfCountDirective(t *testing.T) {
	var word string
	var pos int
	cnt, err := Sscanf("abc def", "%s%n", &word, &pos)
	if err != nil || word != "abc" || pos != 3 {
		t.Fatalf("cnt=%d word=%q pos=%d err=%v", cnt, word, pos, err)
	}
	// The count directive participates in the return value.
	if cnt != 2 {
		t.Fatalf("cnt=%d, want 2", cnt)
	}
}

func TestSscanfPercentLiteral(t *testing.T) {
	var n int
	cnt, err := Sscanf("100%", "%d%%", &n)
	if err != nil || cnt != 1 || n != 100 {
		t.Fatalf("cnt=%d n=%d err=%v", cnt, n, err)
	}
}

func TestSscanfPositional(t *testing.T) {
	var a, b int
	cnt, err := Sscanf("1 2", "%2$d %1$d", &a, &b)
	if err != nil || cnt != 2 {
		t.Fatalf("cnt=%d err=%v", cnt, err)
	}
	if b != 1 || a != 2 {
		t.Fatalf("a=%d b=%d, want a=2 b=1", a, b)
	}
}

func TestStreamScanf(t *testing.T) {
	rt, _, _ := newTestRuntime("count 42 rest")
	var word string
	var n int
	cnt, err := rt.Scanf("%s %d", &word, &n)
	if err != nil || cnt != 2 {
		t.Fatalf("cnt=%d err=%v", cnt, err)
	}
	if word != "count" || n != 42 {
		t.Fatalf("word=%q n=%d", word, n)
	}
	// The character that ended the number is still on the stream.
	c, err := rt.Stdin().Getc()
	if err != nil || c != ' ' {
		t.Fatalf("next = %q, %v", c, err)
	}
}

func TestFileScanf(t *testing.T) {
	rt, _, _ := newTestRuntime("")
	w, _ := rt.Open("/data/conf", "w")
	w.WriteString("width=80 height=24\n")
	w.Close()

	f, _ := rt.Open("/data/conf", "r")
	var width, height int
	cnt, err := f.Scanf("width=%d height=%d", &width, &height)
	if err != nil || cnt != 2 {
		t.Fatalf("cnt=%d err=%v", cnt, err)
	}
	if width != 80 || height != 24 {
		t.Fatalf("width=%d height=%d", width, height)
	}
}
