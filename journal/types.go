// Package journal implements the canonical encoding of values committed by a
// guest program and the layout-driven decoding the host applies to the
// resulting journal bytes.
//
// Wire format: the journal is the plain concatenation of each committed
// value's encoding, in commit order. Words are big-endian and fixed width
// (u32: 4 bytes, u64: 8 bytes, u256: 32 bytes), arrays concatenate their
// elements, byte arrays are appended unchanged. Nothing in the journal
// carries a type tag or a length prefix; the reader supplies the layout.
package journal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrLayoutMismatch = errors.New("journal: layout mismatch")
	ErrInvalidType    = errors.New("journal: invalid value type")
	ErrKindMismatch   = errors.New("journal: value kind mismatch")
	ErrSealed         = errors.New("journal: commit after seal")
)

// MaxWidth bounds the byte width of a single type and of a whole layout.
const MaxWidth = math.MaxInt32

// Kind is the element kind of a committed value.
type Kind uint8

const (
	KindU32 Kind = iota + 1
	KindU64
	KindU256
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindU256:
		return "u256"
	case KindBytes:
		return "bytes"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ElemWidth is the encoded width of one element of kind k.
func (k Kind) ElemWidth() int {
	switch k {
	case KindU32:
		return 4
	case KindU64:
		return 8
	case KindU256:
		return 32
	case KindBytes:
		return 1
	}
	return 0
}

// Type is the declared type of a committed value: a word scalar, a
// fixed-size array of words, or a fixed-length byte array.
type Type struct {
	Kind Kind
	// Array marks word arrays. Byte arrays are always arrays.
	Array bool
	// Len is the element count of an array (bytes for KindBytes); zero
	// for scalars.
	Len int
}

// Scalar word types.
var (
	U32  = Type{Kind: KindU32}
	U64  = Type{Kind: KindU64}
	U256 = Type{Kind: KindU256}
)

// U32Array is the type of an n-element array of 32-bit words.
func U32Array(n int) Type { return Type{Kind: KindU32, Array: true, Len: n} }

// U64Array is the type of an n-element array of 64-bit words.
func U64Array(n int) Type { return Type{Kind: KindU64, Array: true, Len: n} }

// U256Array is the type of an n-element array of 256-bit words.
func U256Array(n int) Type { return Type{Kind: KindU256, Array: true, Len: n} }

// Bytes is the type of an n-byte array.
func Bytes(n int) Type { return Type{Kind: KindBytes, Array: true, Len: n} }

// Valid reports whether t describes a value of positive width.
func (t Type) Valid() bool {
	if t.Kind.ElemWidth() == 0 {
		return false
	}
	if t.Kind == KindBytes && !t.Array {
		return false
	}
	if t.Array {
		return t.Len > 0 && t.Len <= MaxWidth/t.Kind.ElemWidth()
	}
	return t.Len == 0
}

// Width is the number of journal bytes a value of type t occupies.
func (t Type) Width() int {
	if t.Array {
		return t.Kind.ElemWidth() * t.Len
	}
	return t.Kind.ElemWidth()
}

// Elems is the number of elements in a value of type t.
func (t Type) Elems() int {
	if t.Array {
		return t.Len
	}
	return 1
}

func (t Type) String() string {
	if t.Array {
		return fmt.Sprintf("%s[%d]", t.Kind, t.Len)
	}
	return t.Kind.String()
}

// ParseType parses the textual form produced by Type.String, e.g. "u32",
// "u64[10]" or "bytes[32]".
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name, count := s, ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
		}
		name, count = s[:i], s[i+1:len(s)-1]
	}

	var t Type
	switch name {
	case "u32":
		t.Kind = KindU32
	case "u64":
		t.Kind = KindU64
	case "u256":
		t.Kind = KindU256
	case "bytes":
		t.Kind = KindBytes
	default:
		return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	if count != "" || t.Kind == KindBytes {
		n, err := strconv.Atoi(count)
		if err != nil {
			return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
		}
		t.Array, t.Len = true, n
	}
	if !t.Valid() {
		return Type{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Layout is the ordered list of types a reader expects a journal to hold.
type Layout []Type

// Width is the total byte width of the layout.
func (l Layout) Width() int {
	n := 0
	for _, t := range l {
		n += t.Width()
	}
	return n
}

// Validate checks that every entry is a valid type and that the total
// width does not exceed MaxWidth.
func (l Layout) Validate() error {
	var total int64
	for i, t := range l {
		if !t.Valid() {
			return fmt.Errorf("%w: entry %d (%s)", ErrInvalidType, i, t)
		}
		if total += int64(t.Width()); total > MaxWidth {
			return fmt.Errorf("%w: layout wider than %d bytes at entry %d", ErrInvalidType, MaxWidth, i)
		}
	}
	return nil
}

func (l Layout) String() string {
	parts := make([]string, len(l))
	for i, t := range l {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// ParseLayout parses a comma-separated list of types. An empty string is
// the empty layout.
func ParseLayout(s string) (Layout, error) {
	if strings.TrimSpace(s) == "" {
		return Layout{}, nil
	}
	fields := strings.Split(s, ",")
	l := make(Layout, 0, len(fields))
	for _, f := range fields {
		t, err := ParseType(f)
		if err != nil {
			return nil, err
		}
		l = append(l, t)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// LayoutOf returns the layout that decodes values back to themselves.
func LayoutOf(values []Value) Layout {
	l := make(Layout, len(values))
	for i, v := range values {
		l[i] = v.Type()
	}
	return l
}
