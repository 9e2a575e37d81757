package stdio

import (
	"bytes"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phoenixrt/phostdio/internal/errno"
	"github.com/phoenixrt/phostdio/stdio/spec"
)

// sink counts emitted bytes and fails the whole conversion with EOVERFLOW
// once the count would no longer fit the C return type.
type sink struct {
	emit func(p []byte) error
	n    int
}

func (o *sink) write(p []byte) error {
	if o.n > math.MaxInt32-len(p) {
		return errno.EOVERFLOW
	}
	if err := o.emit(p); err != nil {
		return err
	}
	o.n += len(p)
	return nil
}

func (o *sink) writeString(s string) error { return o.write([]byte(s)) }

func (o *sink) pad(c byte, n int) error {
	if n <= 0 {
		return nil
	}
	var chunk [64]byte
	for i := range chunk {
		chunk[i] = c
	}
	for n > 0 {
		k := n
		if k > len(chunk) {
			k = len(chunk)
		}
		if err := o.write(chunk[:k]); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// Printf formats into the stream (fprintf). It returns the number of bytes
// written.
func (s *Stream) Printf(format string, args ...any) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := sink{emit: func(p []byte) error {
		_, err := s.WriteUnlocked(p)
		return err
	}}
	err := formatArgs(&out, format, args)
	return out.n, err
}

// Printf formats onto the runtime's stdout (printf).
func (rt *Runtime) Printf(format string, args ...any) (int, error) {
	return rt.Stdout().Printf(format, args...)
}

// Sprintf formats into a fresh string (sprintf).
func Sprintf(format string, args ...any) (string, error) {
	var buf bytes.Buffer
	out := sink{emit: func(p []byte) error {
		buf.Write(p)
		return nil
	}}
	err := formatArgs(&out, format, args)
	return buf.String(), err
}

// Snprintf formats into dst, truncating at len(dst), and returns the byte
// count the full result would have had (snprintf).
func Snprintf(dst []byte, format string, args ...any) (int, error) {
	used := 0
	out := sink{emit: func(p []byte) error {
		if used < len(dst) {
			used += copy(dst[used:], p)
		}
		return nil
	}}
	err := formatArgs(&out, format, args)
	return out.n, err
}

// Dprintf formats directly onto a descriptor, bypassing stream buffering
// (dprintf).
func (rt *Runtime) Dprintf(fdnum int, format string, args ...any) (int, error) {
	out := sink{emit: func(p []byte) error {
		_, err := rt.fds.Write(fdnum, p)
		return err
	}}
	err := formatArgs(&out, format, args)
	return out.n, err
}

// formatArgs runs the format string against args. Sequential directives take
// arguments in order from their own running cursor; N$ directives address
// args[N-1] directly and do not advance it.
func formatArgs(out *sink, format string, args []any) error {
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
	takeInt := func() (int, error) {
		a, err := take(0)
		if err != nil {
			return 0, err
		}
		v, ok := toInt(a)
		if !ok {
			return 0, errno.EINVAL
		}
		return v, nil
	}

	i := 0
	lit := 0
	for i < len(format) {
		if format[i] != '%' {
			i++
			continue
		}
		if i > lit {
			if err := out.writeString(format[lit:i]); err != nil {
				return err
			}
		}
		sp, j, err := spec.Parse(format, i+1)
		if err != nil {
			return errno.EINVAL
		}
		i = j
		lit = j

		if sp.WidthFromArg {
			w, err := takeInt()
			if err != nil {
				return err
			}
			if w < 0 {
				sp.LeftJustify = true
				w = -w
			}
			sp.Width = w
		}
		if sp.PrecFromArg {
			p, err := takeInt()
			if err != nil {
				return err
			}
			if p < 0 {
				// A negative supplied precision means none was given.
				sp.HasPrecision = false
				p = defaultPrecisionFor(sp.Kind)
			}
			sp.Precision = p
		}

		if sp.Kind == spec.Percent {
			if err := out.writeString("%"); err != nil {
				return err
			}
			continue
		}
		arg, err := take(sp.ArgPos)
		if err != nil {
			return err
		}
		if err := formatOne(out, sp, arg); err != nil {
			return err
		}
	}
	if len(format) > lit {
		return out.writeString(format[lit:])
	}
	return nil
}

func defaultPrecisionFor(k spec.Kind) int {
	switch k {
	case spec.Float:
		return 6
	case spec.String:
		return -1
	default:
		return 1
	}
}

func formatOne(out *sink, sp spec.Spec, arg any) error {
	switch sp.Kind {
	case spec.Int:
		return formatInt(out, sp, arg)
	case spec.Float:
		return formatFloat(out, sp, arg)
	case spec.Char:
		return formatChar(out, sp, arg)
	case spec.String:
		return formatString(out, sp, arg)
	case spec.Pointer:
		return formatPointer(out, sp, arg)
	case spec.Count:
		return storeCount(out, arg)
	default:
		return errno.EINVAL
	}
}

// padded writes body inside the directive's field width.
func padded(out *sink, sp spec.Spec, body string) error {
	gap := sp.Width - len(body)
	if sp.LeftJustify {
		if err := out.writeString(body); err != nil {
			return err
		}
		return out.pad(' ', gap)
	}
	if err := out.pad(' ', gap); err != nil {
		return err
	}
	return out.writeString(body)
}

func formatInt(out *sink, sp spec.Spec, arg any) error {
	neg := false
	var mag uint64
	if sp.Unsigned {
		u, ok := toUint64(arg, sp.Size)
		if !ok {
			return errno.EINVAL
		}
		mag = u
	} else {
		v, ok := toInt64(arg, sp.Size)
		if !ok {
			return errno.EINVAL
		}
		if v < 0 {
			neg = true
			mag = uint64(-v)
		} else {
			mag = uint64(v)
		}
	}

	digits := strconv.FormatUint(mag, sp.Base)
	if sp.Upper {
		digits = strings.ToUpper(digits)
	}
	// Precision 0 with value 0 prints nothing at all.
	if sp.HasPrecision && sp.Precision == 0 && mag == 0 {
		digits = ""
	}

	sign := ""
	switch {
	case neg:
		sign = "-"
	case sp.ForceSign:
		sign = "+"
	case sp.SpaceSign:
		sign = " "
	}

	prefix := ""
	if sp.Alt && mag != 0 {
		switch sp.Base {
		case 16:
			if sp.Upper {
				prefix = "0X"
			} else {
				prefix = "0x"
			}
		case 8:
			if !strings.HasPrefix(digits, "0") {
				prefix = "0"
			}
		}
	}

	zeros := 0
	if sp.HasPrecision && len(digits) < sp.Precision {
		zeros = sp.Precision - len(digits)
	}
	// '0' pads to the width but is overridden by an explicit precision or by
	// left justification.
	if sp.ZeroPad && !sp.HasPrecision && !sp.LeftJustify {
		body := len(sign) + len(prefix) + zeros + len(digits)
		if body < sp.Width {
			zeros += sp.Width - body
		}
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(prefix)
	for k := 0; k < zeros; k++ {
		b.WriteByte('0')
	}
	b.WriteString(digits)
	return padded(out, sp, b.String())
}

func formatFloat(out *sink, sp spec.Spec, arg any) error {
	v, ok := toFloat64(arg)
	if !ok {
		return errno.EINVAL
	}

	sign := ""
	switch {
	case math.Signbit(v):
		sign = "-"
		v = math.Abs(v)
	case sp.ForceSign:
		sign = "+"
	case sp.SpaceSign:
		sign = " "
	}

	if math.IsInf(v, 0) || math.IsNaN(v) {
		body := "inf"
		if math.IsNaN(v) {
			body = "nan"
		}
		if sp.Upper {
			body = strings.ToUpper(body)
		}
		return padded(out, sp, sign+body)
	}

	prec := sp.Precision
	var verb byte
	switch {
	case sp.Base == 16:
		verb = 'x'
		if !sp.HasPrecision {
			prec = -1
		}
	case sp.Form == spec.FormFixed:
		verb = 'f'
	case sp.Form == spec.FormSci:
		verb = 'e'
	default:
		verb = 'g'
		if prec == 0 {
			prec = 1
		}
	}
	body := strconv.FormatFloat(v, verb, prec, 64)
	if sp.Upper {
		body = strings.ToUpper(body)
	}

	zeros := 0
	if sp.ZeroPad && !sp.LeftJustify {
		if n := len(sign) + len(body); n < sp.Width {
			zeros = sp.Width - n
		}
	}
	var b strings.Builder
	b.WriteString(sign)
	for k := 0; k < zeros; k++ {
		b.WriteByte('0')
	}
	b.WriteString(body)
	return padded(out, sp, b.String())
}

func formatChar(out *sink, sp spec.Spec, arg any) error {
	var body string
	if sp.Size == spec.SizeLong {
		r, ok := toRune(arg)
		if !ok {
			return errno.EINVAL
		}
		var enc [utf8.UTFMax]byte
		body = string(enc[:utf8.EncodeRune(enc[:], r)])
	} else {
		v, ok := toUint64(arg, spec.SizeChar)
		if !ok {
			return errno.EINVAL
		}
		body = string([]byte{byte(v)})
	}
	return padded(out, sp, body)
}

func formatString(out *sink, sp spec.Spec, arg any) error {
	var body string
	switch v := arg.(type) {
	case string:
		body = v
	case []byte:
		body = string(v)
	default:
		return errno.EINVAL
	}
	if sp.HasPrecision && sp.Precision >= 0 && sp.Precision < len(body) {
		body = body[:sp.Precision]
	}
	return padded(out, sp, body)
}

func formatPointer(out *sink, sp spec.Spec, arg any) error {
	var addr uint64
	switch v := arg.(type) {
	case nil:
		addr = 0
	case uintptr:
		addr = uint64(v)
	case uint64:
		addr = v
	case uint:
		addr = uint64(v)
	default:
		rv := reflect.ValueOf(arg)
		switch rv.Kind() {
		case reflect.Pointer, reflect.UnsafePointer, reflect.Func, reflect.Chan, reflect.Map, reflect.Slice:
			addr = uint64(rv.Pointer())
		default:
			return errno.EINVAL
		}
	}
	return padded(out, sp, "0x"+strconv.FormatUint(addr, 16))
}

// storeCount writes the running byte count through a pointer argument (%n).
func storeCount(out *sink, arg any) error {
	switch p := arg.(type) {
	case *int:
		*p = out.n
	case *int32:
		*p = int32(out.n)
	case *int64:
		*p = int64(out.n)
	default:
		return errno.EINVAL
	}
	return nil
}

func toInt(a any) (int, bool) {
	v, ok := toInt64(a, spec.SizeDefault)
	return int(v), ok
}

func toInt64(a any, size spec.Size) (int64, bool) {
	var v int64
	switch x := a.(type) {
	case int:
		v = int64(x)
	case int8:
		v = int64(x)
	case int16:
		v = int64(x)
	case int32:
		v = int64(x)
	case int64:
		v = x
	case uint:
		v = int64(x)
	case uint8:
		v = int64(x)
	case uint16:
		v = int64(x)
	case uint32:
		v = int64(x)
	case uint64:
		v = int64(x)
	case uintptr:
		v = int64(x)
	default:
		return 0, false
	}
	switch size {
	case spec.SizeChar:
		v = int64(int8(v))
	case spec.SizeShort:
		v = int64(int16(v))
	}
	return v, true
}

func toUint64(a any, size spec.Size) (uint64, bool) {
	v, ok := toInt64(a, spec.SizeDefault)
	if !ok {
		return 0, false
	}
	u := uint64(v)
	switch size {
	case spec.SizeChar:
		u = uint64(uint8(u))
	case spec.SizeShort:
		u = uint64(uint16(u))
	case spec.SizeLong, spec.SizeLongLong, spec.SizeIntMax, spec.SizeSize, spec.SizePtrdiff, spec.SizeDefault:
	}
	return u, true
}

func toFloat64(a any) (float64, bool) {
	switch x := a.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func toRune(a any) (rune, bool) {
	switch x := a.(type) {
	case rune:
		return x, true
	case int:
		return rune(x), true
	case byte:
		return rune(x), true
	}
	return 0, false
}
