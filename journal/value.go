package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Value is a typed committed value held in its canonical encoding.
// Constructors never fail; an ill-formed value (for example a zero-length
// array) is rejected when it is committed.
type Value struct {
	typ  Type
	data []byte
}

// NewUint32 returns a 32-bit word value.
func NewUint32(v uint32) Value {
	return Value{typ: U32, data: binary.BigEndian.AppendUint32(nil, v)}
}

// NewUint64 returns a 64-bit word value.
func NewUint64(v uint64) Value {
	return Value{typ: U64, data: binary.BigEndian.AppendUint64(nil, v)}
}

// NewUint256 returns a 256-bit word value. A nil v encodes as zero.
func NewUint256(v *uint256.Int) Value {
	var b [32]byte
	if v != nil {
		b = v.Bytes32()
	}
	return Value{typ: U256, data: b[:]}
}

// NewUint32s returns an array of 32-bit words.
func NewUint32s(vs []uint32) Value {
	data := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		data = binary.BigEndian.AppendUint32(data, v)
	}
	return Value{typ: U32Array(len(vs)), data: data}
}

// NewUint64s returns an array of 64-bit words.
func NewUint64s(vs []uint64) Value {
	data := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		data = binary.BigEndian.AppendUint64(data, v)
	}
	return Value{typ: U64Array(len(vs)), data: data}
}

// NewBytes returns a byte-array value holding a copy of b.
func NewBytes(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)
	return Value{typ: Bytes(len(b)), data: data}
}

// Type returns the declared type of v.
func (v Value) Type() Type { return v.typ }

// Encoded returns a copy of the canonical encoding of v.
func (v Value) Encoded() []byte {
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out
}

// Bytes returns the contents of a byte-array value.
func (v Value) Bytes() ([]byte, error) {
	if v.typ.Kind != KindBytes {
		return nil, v.mismatch("bytes")
	}
	return v.Encoded(), nil
}

// Uint32 returns the word of a u32 scalar.
func (v Value) Uint32() (uint32, error) {
	if v.typ != U32 {
		return 0, v.mismatch("u32")
	}
	return binary.BigEndian.Uint32(v.data), nil
}

// Uint64 returns the word of a u64 scalar.
func (v Value) Uint64() (uint64, error) {
	if v.typ != U64 {
		return 0, v.mismatch("u64")
	}
	return binary.BigEndian.Uint64(v.data), nil
}

// Uint256 returns the word of a u256 scalar.
func (v Value) Uint256() (*uint256.Int, error) {
	if v.typ != U256 {
		return nil, v.mismatch("u256")
	}
	return new(uint256.Int).SetBytes(v.data), nil
}

// Uint32s returns the words of a u32 scalar or array.
func (v Value) Uint32s() ([]uint32, error) {
	if v.typ.Kind != KindU32 {
		return nil, v.mismatch("u32 words")
	}
	out := make([]uint32, v.typ.Elems())
	for i := range out {
		out[i] = binary.BigEndian.Uint32(v.data[4*i:])
	}
	return out, nil
}

// Uint64s returns the words of a u64 scalar or array.
func (v Value) Uint64s() ([]uint64, error) {
	if v.typ.Kind != KindU64 {
		return nil, v.mismatch("u64 words")
	}
	out := make([]uint64, v.typ.Elems())
	for i := range out {
		out[i] = binary.BigEndian.Uint64(v.data[8*i:])
	}
	return out, nil
}

// Equal reports whether v and o have the same type and encoding.
func (v Value) Equal(o Value) bool {
	return v.typ == o.typ && bytes.Equal(v.data, o.data)
}

func (v Value) String() string {
	switch v.typ.Kind {
	case KindBytes:
		return fmt.Sprintf("%s(0x%x)", v.typ, v.data)
	case KindU256:
		parts := make([]string, v.typ.Elems())
		for i := range parts {
			parts[i] = new(uint256.Int).SetBytes(v.data[32*i : 32*(i+1)]).Dec()
		}
		return fmt.Sprintf("%s(%s)", v.typ, strings.Join(parts, " "))
	case KindU32:
		ws, _ := v.Uint32s()
		return fmt.Sprintf("%s(%s)", v.typ, strings.Trim(fmt.Sprint(ws), "[]"))
	case KindU64:
		ws, _ := v.Uint64s()
		return fmt.Sprintf("%s(%s)", v.typ, strings.Trim(fmt.Sprint(ws), "[]"))
	}
	return fmt.Sprintf("%s(0x%x)", v.typ, v.data)
}

func (v Value) mismatch(want string) error {
	return fmt.Errorf("%w: have %s, want %s", ErrKindMismatch, v.typ, want)
}

// valid reports whether the encoding agrees with the declared type.
func (v Value) valid() bool {
	return v.typ.Valid() && len(v.data) == v.typ.Width()
}
