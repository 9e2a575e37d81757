package stdio

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/stdio/spec"
)

// source is the byte stream a scan runs against. getc reports io.EOF at end
// of input; ungetc must accept at least one byte of lookahead.
type source interface {
	getc() (byte, error)
	ungetc(c byte)
	count() int
}

type stringSource struct {
	s string
	i int
}

func (ss *stringSource) getc() (byte, error) {
	if ss.i >= len(ss.s) {
		return 0, io.EOF
	}
	c := ss.s[ss.i]
	ss.i++
	return c, nil
}

func (ss *stringSource) ungetc(byte) { ss.i-- }
func (ss *stringSource) count() int  { return ss.i }

// streamSource adapts a locked stream. The lock is held by the caller for
// the whole scan, so lookahead pushes back through the unlocked path.
type streamSource struct {
	s *Stream
	n int
}

func (st *streamSource) getc() (byte, error) {
	c, err := st.s.GetcUnlocked()
	if err == nil {
		st.n++
	}
	return c, err
}

func (st *streamSource) ungetc(c byte) {
	if st.s.UngetcUnlocked(c) == nil {
		st.n--
	}
}

func (st *streamSource) count() int { return st.n }

// Scanf scans formatted input from the stream (fscanf). It returns the
// number of completed assignments; io.EOF is reported only when input ends
// before the first one.
func (s *Stream) Scanf(format string, args ...any) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return scanArgs(&streamSource{s: s}, format, args)
}

// Scanf scans from the runtime's stdin (scanf).
func (rt *Runtime) Scanf(format string, args ...any) (int, error) {
	return rt.Stdin().Scanf(format, args...)
}

// Sscanf scans formatted input from a string (sscanf).
func Sscanf(input, format string, args ...any) (int, error) {
	return scanArgs(&stringSource{s: input}, format, args)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// skipSpace consumes a run of whitespace. It reports input failure only when
// the very first read hits it.
func skipSpace(src source) error {
	for {
		c, err := src.getc()
		if err != nil {
			return err
		}
		if !isSpace(c) {
			src.ungetc(c)
			return nil
		}
	}
}

func scanArgs(src source, format string, args []any) (int, error) {
	assigned := 0
	next := 0
	take := func(pos int) (any, error) {
		idx := pos - 1
		if pos == 0 {
			idx = next
			next++
		}
		if idx < 0 || idx >= len(args) {
			return nil, errno.EINVAL
		}
		return args[idx], nil
	}
	// fail wraps an input failure: EOF before the first assignment is the
	// EOF return, anything after it is just a short count.
	fail := func(err error) (int, error) {
		if err == io.EOF && assigned > 0 {
			return assigned, nil
		}
		if err == io.EOF {
			return assigned, io.EOF
		}
		return assigned, err
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if isSpace(c) {
			i++
			if err := skipSpace(src); err != nil && err != io.EOF {
				return fail(err)
			}
			continue
		}
		if c != '%' {
			// Literal directive: the next input byte must match exactly.
			in, err := src.getc()
			if err != nil {
				return fail(err)
			}
			if in != c {
				src.ungetc(in)
				return assigned, nil
			}
			i++
			continue
		}

		i++
		suppress := false
		if i < len(format) && format[i] == '*' {
			suppress = true
			i++
		}
		sp, j, err := spec.Parse(format, i)
		if err != nil {
			return assigned, errno.EINVAL
		}
		i = j

		// %c, %[, and %n read raw; everything else skips leading whitespace.
		switch sp.Kind {
		case spec.Char, spec.Scanset, spec.Count:
		default:
			if err := skipSpace(src); err != nil {
				return fail(err)
			}
		}

		width := -1
		if sp.HasWidth {
			width = sp.Width
		}

		switch sp.Kind {
		case spec.Percent:
			in, err := src.getc()
			if err != nil {
				return fail(err)
			}
			if in != '%' {
				src.ungetc(in)
				return assigned, nil
			}

		case spec.Int, spec.Pointer:
			text, base, err := scanIntText(src, sp, width)
			if err != nil {
				return fail(err)
			}
			if text == "" {
				return assigned, nil
			}
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeInt(arg, text, base); err != nil {
					return assigned, err
				}
				assigned++
			}

		case spec.Float:
			text, err := scanFloatText(src, width)
			if err != nil {
				return fail(err)
			}
			if text == "" {
				return assigned, nil
			}
			v, perr := strconv.ParseFloat(text, 64)
			if perr != nil {
				return assigned, nil
			}
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeFloat(arg, v); err != nil {
					return assigned, err
				}
				assigned++
			}

		case spec.Char:
			n := 1
			if sp.HasWidth {
				n = sp.Width
			}
			wide := sp.Size == spec.SizeLong
			if wide && !sp.HasWidth {
				// One whole character, however many bytes it takes.
				n = utf8.UTFMax
			}
			raw := make([]byte, 0, n)
			for k := 0; k < n; k++ {
				in, err := src.getc()
				if err != nil {
					if len(raw) == 0 {
						return fail(err)
					}
					break
				}
				raw = append(raw, in)
				if wide && !sp.HasWidth && utf8.FullRune(raw) {
					break
				}
			}
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeChars(arg, raw, wide); err != nil {
					return assigned, err
				}
				assigned++
			}

		case spec.String:
			var b strings.Builder
			for width != 0 {
				in, err := src.getc()
				if err != nil {
					break
				}
				if isSpace(in) {
					src.ungetc(in)
					break
				}
				b.WriteByte(in)
				if width > 0 {
					width--
				}
			}
			if b.Len() == 0 {
				return fail(io.EOF)
			}
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeString(arg, b.String()); err != nil {
					return assigned, err
				}
				assigned++
			}

		case spec.Scanset:
			var b strings.Builder
			for width != 0 {
				in, err := src.getc()
				if err != nil {
					break
				}
				if !sp.Matches(in) {
					src.ungetc(in)
					break
				}
				b.WriteByte(in)
				if width > 0 {
					width--
				}
			}
			if b.Len() == 0 {
				return assigned, nil
			}
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeString(arg, b.String()); err != nil {
					return assigned, err
				}
				assigned++
			}

		case spec.Count:
			if !suppress {
				arg, err := take(sp.ArgPos)
				if err != nil {
					return assigned, err
				}
				if err := storeInt(arg, strconv.Itoa(src.count()), 10); err != nil {
					return assigned, err
				}
				assigned++
			}

		default:
			return assigned, errno.EINVAL
		}
	}
	return assigned, nil
}

// scanIntText consumes an optionally signed integer, sniffing the radix for
// %i (Base 0): a 0x or 0X prefix means hex, a bare leading 0 means octal.
// It returns the sign-and-digits text with the radix resolved. Empty text
// means matching failure with the input pushed back where possible.
func scanIntText(src source, sp spec.Spec, width int) (string, int, error) {
	base := sp.Base
	if sp.Kind == spec.Pointer {
		base = 0
	}
	var b strings.Builder
	get := func() (byte, bool, error) {
		if width == 0 {
			return 0, false, nil
		}
		c, err := src.getc()
		if err != nil {
			return 0, false, err
		}
		if width > 0 {
			width--
		}
		return c, true, nil
	}

	c, ok, err := get()
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, nil
	}
	if c == '+' || c == '-' {
		b.WriteByte(c)
		c, ok, err = get()
		if err != nil || !ok {
			return "", 0, nil
		}
	}

	digits := 0
	if (base == 0 || base == 16) && c == '0' {
		c2, ok2, err2 := get()
		if err2 != nil || !ok2 {
			b.WriteByte('0')
			return b.String(), 10, nil
		}
		if c2 == 'x' || c2 == 'X' {
			base = 16
			c, ok, err = get()
			if err != nil || !ok || !digitInBase(c, 16) {
				// "0x" followed by nothing usable still scanned the zero;
				// only one byte of lookahead comes back.
				if ok {
					src.ungetc(c)
				}
				return "0", 10, nil
			}
		} else {
			src.ungetc(c2)
			if width >= 0 {
				width++
			}
			if base == 0 {
				base = 8
			}
			b.WriteByte('0')
			digits++
			c, ok, err = get()
			if err != nil || !ok {
				return b.String(), base, nil
			}
		}
	}
	if base == 0 {
		base = 10
	}

	for {
		if !digitInBase(c, base) {
			src.ungetc(c)
			break
		}
		b.WriteByte(c)
		digits++
		c, ok, err = get()
		if err != nil || !ok {
			break
		}
	}
	if digits == 0 {
		return "", 0, nil
	}
	return b.String(), base, nil
}

func digitInBase(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return int(c-'0') < base
	case c >= 'a' && c <= 'f':
		return int(c-'a'+10) < base
	case c >= 'A' && c <= 'F':
		return int(c-'A'+10) < base
	}
	return false
}

// scanFloatText consumes the longest prefix that looks like a decimal
// floating-point number, including an optional exponent, plus the inf and
// nan spellings.
func scanFloatText(src source, width int) (string, error) {
	var b strings.Builder
	get := func() (byte, bool) {
		if width == 0 {
			return 0, false
		}
		c, err := src.getc()
		if err != nil {
			return 0, false
		}
		if width > 0 {
			width--
		}
		return c, true
	}

	c, ok := get()
	if !ok {
		return "", io.EOF
	}
	if c == '+' || c == '-' {
		b.WriteByte(c)
		c, ok = get()
		if !ok {
			return "", nil
		}
	}

	if c == 'i' || c == 'I' || c == 'n' || c == 'N' {
		// inf, infinity, nan
		word := []byte{c}
		for {
			c, ok = get()
			if !ok {
				break
			}
			lc := c | 0x20
			if lc < 'a' || lc > 'z' {
				src.ungetc(c)
				break
			}
			word = append(word, c)
		}
		w := strings.ToLower(string(word))
		if w == "inf" || w == "infinity" || w == "nan" {
			b.WriteString(w)
			return b.String(), nil
		}
		return "", nil
	}

	digits := 0
	for {
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
			digits++
		} else if c == '.' && !strings.ContainsRune(b.String(), '.') && !strings.ContainsAny(b.String(), "eE") {
			b.WriteByte(c)
		} else if (c == 'e' || c == 'E') && digits > 0 && !strings.ContainsAny(b.String(), "eE") {
			b.WriteByte(c)
			c2, ok2 := get()
			if !ok2 {
				return "", nil
			}
			if c2 == '+' || c2 == '-' {
				b.WriteByte(c2)
			} else {
				src.ungetc(c2)
				if width >= 0 {
					width++
				}
			}
		} else {
			src.ungetc(c)
			break
		}
		c, ok = get()
		if !ok {
			break
		}
	}
	if digits == 0 {
		return "", nil
	}
	return b.String(), nil
}

func storeInt(arg any, text string, base int) error {
	switch p := arg.(type) {
	case *int:
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return errno.EINVAL
		}
		*p = int(v)
	case *int8:
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return errno.EINVAL
		}
		*p = int8(v)
	case *int16:
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return errno.EINVAL
		}
		*p = int16(v)
	case *int32:
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return errno.EINVAL
		}
		*p = int32(v)
	case *int64:
		v, err := strconv.ParseInt(text, base, 64)
		if err != nil {
			return errno.EINVAL
		}
		*p = v
	case *uint:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = uint(v)
	case *uint8:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = uint8(v)
	case *uint16:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = uint16(v)
	case *uint32:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = uint32(v)
	case *uint64:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = v
	case *uintptr:
		v, err := parseUintText(text, base)
		if err != nil {
			return errno.EINVAL
		}
		*p = uintptr(v)
	default:
		return errno.EINVAL
	}
	return nil
}

// parseUintText parses like ParseUint but tolerates a leading sign, wrapping
// negatives the way C unsigned conversions do.
func parseUintText(text string, base int) (uint64, error) {
	neg := false
	if len(text) > 0 && (text[0] == '+' || text[0] == '-') {
		neg = text[0] == '-'
		text = text[1:]
	}
	v, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		return -v, nil
	}
	return v, nil
}

func storeFloat(arg any, v float64) error {
	switch p := arg.(type) {
	case *float64:
		*p = v
	case *float32:
		*p = float32(v)
	default:
		return errno.EINVAL
	}
	return nil
}

func storeChars(arg any, raw []byte, wide bool) error {
	if wide {
		p, ok := arg.(*rune)
		if !ok {
			return errno.EINVAL
		}
		r, _ := utf8.DecodeRune(raw)
		*p = r
		return nil
	}
	switch p := arg.(type) {
	case *byte:
		*p = raw[0]
	case *[]byte:
		*p = append((*p)[:0], raw...)
	case *string:
		*p = string(raw)
	default:
		return errno.EINVAL
	}
	return nil
}

func storeString(arg any, s string) error {
	switch p := arg.(type) {
	case *string:
		*p = s
	case *[]byte:
		*p = append((*p)[:0], s...)
	default:
		return errno.EINVAL
	}
	return nil
}
