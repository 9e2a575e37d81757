// Package spec parses printf/scanf conversion specifications.
//
// The parser is deliberately pure: no I/O and no argument consumption. The
// print and scan engines share it exactly, so format-string interpretation
// can never diverge between the two families.
package spec

import "errors"

// ErrMalformed is returned when no recognized conversion character is found
// or a scanset is never closed. The caller's cursor is left where it started.
var ErrMalformed = errors.New("malformed conversion specification")

// Kind is the conversion kind.
type Kind uint8

const (
	Int Kind = iota
	Float
	Char
	String
	Pointer
	Scanset
	Count
	Percent
)

// Size is the argument-size length modifier.
type Size uint8

const (
	SizeDefault    Size = iota
	SizeChar            // hh
	SizeShort           // h
	SizeLong            // l
	SizeLongLong        // ll
	SizeIntMax          // j
	SizeSize            // z
	SizePtrdiff         // t
	SizeLongDouble      // L
)

// FloatForm distinguishes the floating-point presentation styles.
type FloatForm uint8

const (
	FormFixed FloatForm = iota // %f
	FormSci                    // %e, and %a with Base 16
	FormShort                  // %g
)

// Spec is one parsed %... directive. It borrows slices of the format string
// (Set) and owns no memory.
type Spec struct {
	Kind     Kind
	Size     Size
	Unsigned bool
	Base     int // 0 = sniff the radix from the input (%i); else 8, 10, or 16
	Upper    bool
	Form     FloatForm

	LeftJustify bool // '-'
	ForceSign   bool // '+'
	SpaceSign   bool // ' '
	Alt         bool // '#'
	ZeroPad     bool // '0'

	HasWidth     bool
	WidthFromArg bool // '*'
	Width        int

	HasPrecision bool
	PrecFromArg  bool // '.*'
	Precision    int  // conversion-kind default applied when !HasPrecision; -1 = unbounded

	// ArgPos is the 1-based argument position from the N$ prefix, or 0 for
	// "next argument".
	ArgPos int

	Set     string // scanset body, brackets and '^' stripped, ']' terminator excluded
	Negated bool   // scanset began with '^'
}

// Parse consumes one conversion specification from format, starting at index
// i, which must point just past the '%' (and, in scan mode, past a leading
// '*'). It returns the spec and the index of the first character after the
// directive. On a malformed directive it returns ErrMalformed and the
// original index.
func Parse(format string, i int) (Spec, int, error) {
	var s Spec
	start := i

	// Argument position: digits followed by '$'. A '0' here would be a flag,
	// so only commit when the '$' is actually present.
	if j := i; j < len(format) && format[j] >= '1' && format[j] <= '9' {
		pos := 0
		for j < len(format) && format[j] >= '0' && format[j] <= '9' {
			pos = pos*10 + int(format[j]-'0')
			j++
		}
		if j < len(format) && format[j] == '$' {
			s.ArgPos = pos
			i = j + 1
		}
	}

	// Flags
flags:
	for ; i < len(format); i++ {
		switch format[i] {
		case '-':
			s.LeftJustify = true
		case '+':
			s.ForceSign = true
		case ' ':
			s.SpaceSign = true
		case '#':
			s.Alt = true
		case '0':
			s.ZeroPad = true
		default:
			break flags
		}
	}

	// Width
	if i < len(format) && format[i] == '*' {
		i++
		s.HasWidth = true
		s.WidthFromArg = true
	} else if i < len(format) && format[i] >= '0' && format[i] <= '9' {
		s.HasWidth = true
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			s.Width = 10*s.Width + int(format[i]-'0')
			i++
		}
	}

	// Precision
	if i < len(format) && format[i] == '.' {
		i++
		s.HasPrecision = true
		if i < len(format) && format[i] == '*' {
			i++
			s.PrecFromArg = true
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				s.Precision = 10*s.Precision + int(format[i]-'0')
				i++
			}
		}
	}

	// Length modifier
	if i < len(format) {
		switch format[i] {
		case 'h':
			i++
			if i < len(format) && format[i] == 'h' {
				i++
				s.Size = SizeChar
			} else {
				s.Size = SizeShort
			}
		case 'l':
			i++
			if i < len(format) && format[i] == 'l' {
				i++
				s.Size = SizeLongLong
			} else {
				s.Size = SizeLong
			}
		case 'j':
			i++
			s.Size = SizeIntMax
		case 'z':
			i++
			s.Size = SizeSize
		case 't':
			i++
			s.Size = SizePtrdiff
		case 'L':
			i++
			s.Size = SizeLongDouble
		}
	}

	if i >= len(format) {
		return Spec{}, start, ErrMalformed
	}

	// Conversion character. Default precision is conversion-kind-specific and
	// applied only when none was parsed.
	c := format[i]
	i++
	switch c {
	case 'i':
		s.Kind = Int
		s.Base = 0
		s.defaultPrecision(1)
	case 'd':
		s.Kind = Int
		s.Base = 10
		s.defaultPrecision(1)
	case 'u':
		s.Kind = Int
		s.Unsigned = true
		s.Base = 10
		s.defaultPrecision(1)
	case 'o':
		s.Kind = Int
		s.Unsigned = true
		s.Base = 8
		s.defaultPrecision(1)
	case 'x':
		s.Kind = Int
		s.Unsigned = true
		s.Base = 16
		s.defaultPrecision(1)
	case 'X':
		s.Kind = Int
		s.Unsigned = true
		s.Base = 16
		s.Upper = true
		s.defaultPrecision(1)
	case 'f', 'F':
		s.Kind = Float
		s.Base = 10
		s.Form = FormFixed
		s.Upper = c == 'F'
		s.defaultPrecision(6)
	case 'e', 'E':
		s.Kind = Float
		s.Base = 10
		s.Form = FormSci
		s.Upper = c == 'E'
		s.defaultPrecision(6)
	case 'g', 'G':
		s.Kind = Float
		s.Base = 10
		s.Form = FormShort
		s.Upper = c == 'G'
		s.defaultPrecision(6)
	case 'a', 'A':
		s.Kind = Float
		s.Base = 16
		s.Form = FormSci
		s.Upper = c == 'A'
		s.defaultPrecision(6)
	case 'c':
		s.Kind = Char
		s.Unsigned = true
		s.defaultPrecision(1)
	case 's':
		s.Kind = String
		s.Unsigned = true
		s.defaultPrecision(-1)
	case 'p':
		s.Kind = Pointer
		s.Unsigned = true
		s.Base = 16
		s.defaultPrecision(1)
	case 'n':
		s.Kind = Count
		s.Unsigned = true
		s.defaultPrecision(0)
	case '%':
		s.Kind = Percent
		s.Unsigned = true
		s.defaultPrecision(1)
	case '[':
		s.Kind = Scanset
		s.Unsigned = true
		s.defaultPrecision(1)
		var err error
		i, err = parseScanset(format, i, &s)
		if err != nil {
			return Spec{}, start, err
		}
	default:
		return Spec{}, start, ErrMalformed
	}

	return s, i, nil
}

func (s *Spec) defaultPrecision(p int) {
	if !s.HasPrecision {
		s.Precision = p
	}
}

// parseScanset consumes a bracket expression starting just past the '['. A
// ']' appearing first (possibly after '^') is a member of the set, not the
// terminator.
func parseScanset(format string, i int, s *Spec) (int, error) {
	if i < len(format) && format[i] == '^' {
		s.Negated = true
		i++
	}
	start := i
	if i < len(format) && format[i] == ']' {
		i++
	}
	for i < len(format) {
		if format[i] == ']' {
			s.Set = format[start:i]
			return i + 1, nil
		}
		i++
	}
	return i, ErrMalformed
}

// Matches reports whether c belongs to the scanset, honoring negation and
// a-z ranges. A '-' first or last in the set is a literal member.
func (s *Spec) Matches(c byte) bool {
	member := false
	for j := 0; j < len(s.Set); j++ {
		if s.Set[j] == '-' && j > 0 && j+1 < len(s.Set) {
			if s.Set[j-1] <= c && c <= s.Set[j+1] {
				member = true
				break
			}
			continue
		}
		if s.Set[j] == c {
			member = true
			break
		}
	}
	if s.Negated {
		return !member
	}
	return member
}
