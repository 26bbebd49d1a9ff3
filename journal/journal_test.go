package journal

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
)

// --- Encoding ---

func TestCommitBigEndianWidths(t *testing.T) {
	j := New()
	if err := j.CommitUint32(0x01020304); err != nil {
		t.Fatalf("CommitUint32: %v", err)
	}
	if err := j.CommitUint64(0x0a0b0c0d0e0f1011); err != nil {
		t.Fatalf("CommitUint64: %v", err)
	}
	want := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11,
	}
	if got := j.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("journal = %x, want %x", got, want)
	}
	if j.Commits() != 2 {
		t.Errorf("Commits() = %d, want 2", j.Commits())
	}
}

func TestCommitBytesRaw(t *testing.T) {
	digest := bytes.Repeat([]byte{0xab}, 32)
	j := New()
	if err := j.CommitBytes(digest); err != nil {
		t.Fatalf("CommitBytes: %v", err)
	}
	if !bytes.Equal(j.Bytes(), digest) {
		t.Fatal("byte array not appended unchanged")
	}
}

func TestCommitUint256(t *testing.T) {
	j := New()
	if err := j.CommitUint256(uint256.NewInt(0x0102)); err != nil {
		t.Fatalf("CommitUint256: %v", err)
	}
	got := j.Bytes()
	if len(got) != 32 {
		t.Fatalf("len = %d, want 32", len(got))
	}
	if got[30] != 0x01 || got[31] != 0x02 || !bytes.Equal(got[:30], make([]byte, 30)) {
		t.Fatalf("u256 not big-endian: %x", got)
	}
}

func TestCommitStrictlyGrows(t *testing.T) {
	j := New()
	values := []Value{
		NewUint32(0),
		NewUint64(0),
		NewBytes([]byte{0}),
		NewUint32s([]uint32{0, 0}),
	}
	prev := j.Len()
	for _, v := range values {
		if err := j.Commit(v); err != nil {
			t.Fatalf("Commit(%s): %v", v, err)
		}
		if j.Len() <= prev {
			t.Fatalf("journal did not grow after committing %s", v)
		}
		prev = j.Len()
	}
}

func TestCommitRejectsZeroWidth(t *testing.T) {
	j := New()
	for _, v := range []Value{NewBytes(nil), NewUint32s(nil), {}} {
		if err := j.Commit(v); !errors.Is(err, ErrInvalidType) {
			t.Errorf("Commit(%s) err = %v, want ErrInvalidType", v.Type(), err)
		}
	}
	if j.Len() != 0 || j.Commits() != 0 {
		t.Fatal("rejected commits changed the journal")
	}
}

func TestSealedJournalRejectsCommit(t *testing.T) {
	j := New()
	_ = j.CommitUint32(7)
	sealed := j.Seal()
	if !j.Sealed() {
		t.Fatal("journal should be sealed")
	}
	if err := j.CommitUint32(8); !errors.Is(err, ErrSealed) {
		t.Fatalf("commit after seal err = %v, want ErrSealed", err)
	}
	sealed[0] = 0xff
	if j.Bytes()[0] == 0xff {
		t.Fatal("Seal returned an alias of the journal buffer")
	}
}

// --- Types and layouts ---

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("u32[8], u64 ,bytes[32],u256")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	want := Layout{U32Array(8), U64, Bytes(32), U256}
	if len(l) != len(want) {
		t.Fatalf("len = %d, want %d", len(l), len(want))
	}
	for i := range want {
		if l[i] != want[i] {
			t.Errorf("entry %d = %s, want %s", i, l[i], want[i])
		}
	}
	if l.Width() != 32+8+32+32 {
		t.Errorf("Width() = %d", l.Width())
	}
	if l.String() != "u32[8],u64,bytes[32],u256" {
		t.Errorf("String() = %q", l.String())
	}
}

func TestParseTypeInvalid(t *testing.T) {
	for _, s := range []string{"", "u16", "bytes", "bytes[0]", "u32[0]", "u32[x]", "u32[4", "u64[-1]"} {
		if _, err := ParseType(s); !errors.Is(err, ErrInvalidType) {
			t.Errorf("ParseType(%q) err = %v, want ErrInvalidType", s, err)
		}
	}
}

func TestParseLayoutEmpty(t *testing.T) {
	l, err := ParseLayout("  ")
	if err != nil || len(l) != 0 {
		t.Fatalf("ParseLayout(blank) = %v, %v", l, err)
	}
}

// --- Decoding ---

func TestMultiCommitOrdering(t *testing.T) {
	a := NewUint32(1)
	b := NewBytes([]byte("bb"))
	c := NewUint64(3)

	enc, err := Encode(a, b, c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc, Layout{U32, Bytes(2), U64})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range []Value{a, b, c} {
		if !got[i].Equal(want) {
			t.Errorf("value %d = %s, want %s", i, got[i], want)
		}
	}
}

func TestDecodeShortJournal(t *testing.T) {
	enc, _ := Encode(NewUint32(1), NewUint32(2))
	values, err := Decode(enc, Layout{U32, U64})
	if !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("err = %v, want ErrLayoutMismatch", err)
	}
	if values != nil {
		t.Fatalf("partial values returned: %v", values)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	enc, _ := Encode(NewUint32(1), NewUint32(2))
	values, err := Decode(enc, Layout{U32})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := values[0].Uint32(); v != 1 {
		t.Fatalf("value = %d, want 1", v)
	}
	if _, err := DecodeExact(enc, Layout{U32}); !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("DecodeExact err = %v, want ErrLayoutMismatch", err)
	}
	if _, err := DecodeExact(enc, Layout{U32, U32}); err != nil {
		t.Fatalf("DecodeExact exact fit: %v", err)
	}
}

func TestDecodeInvalidLayout(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3, 4}, Layout{{Kind: KindBytes}}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want ErrInvalidType", err)
	}
}

func TestOversizedLayouts(t *testing.T) {
	for _, s := range []string{
		"u256[288230376151711744]",
		"bytes[4611686018427387904],bytes[4611686018427387904]",
		"bytes[2147483647],u32",
	} {
		if _, err := ParseLayout(s); !errors.Is(err, ErrInvalidType) {
			t.Errorf("ParseLayout(%q) err = %v, want ErrInvalidType", s, err)
		}
	}

	huge := []Layout{
		{U256Array(math.MaxInt/32 + 1)},
		{Bytes(math.MaxInt/2 + 1), Bytes(math.MaxInt/2 + 1)},
		{Bytes(MaxWidth), Bytes(MaxWidth)},
	}
	for _, l := range huge {
		if _, err := Decode([]byte{1, 2, 3}, l); !errors.Is(err, ErrInvalidType) {
			t.Errorf("Decode(%s) err = %v, want ErrInvalidType", l, err)
		}
		if _, err := DecodeExact([]byte{1, 2, 3}, l); !errors.Is(err, ErrInvalidType) {
			t.Errorf("DecodeExact(%s) err = %v, want ErrInvalidType", l, err)
		}
	}

	l, err := ParseLayout("bytes[2147483647]")
	if err != nil {
		t.Fatalf("ParseLayout(max width): %v", err)
	}
	if _, err := Decode([]byte{1, 2, 3}, l); !errors.Is(err, ErrLayoutMismatch) {
		t.Fatalf("short journal err = %v, want ErrLayoutMismatch", err)
	}
}

func TestDecodeDoesNotAlias(t *testing.T) {
	enc, _ := Encode(NewBytes([]byte{1, 2}))
	values, _ := Decode(enc, Layout{Bytes(2)})
	enc[0] = 9
	b, _ := values[0].Bytes()
	if b[0] != 1 {
		t.Fatal("decoded value aliases journal buffer")
	}
}

// --- Accessors ---

func TestValueAccessorsKindMismatch(t *testing.T) {
	v := NewUint64(5)
	if _, err := v.Uint32(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Uint32 on u64: %v", err)
	}
	if _, err := v.Bytes(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Bytes on u64: %v", err)
	}
	if _, err := v.Uint256(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Uint256 on u64: %v", err)
	}
	if _, err := NewUint32s([]uint32{1, 2}).Uint32(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Uint32 on u32[2]: %v", err)
	}
	if got, err := v.Uint64(); err != nil || got != 5 {
		t.Errorf("Uint64() = %d, %v", got, err)
	}
}

func TestValueWords(t *testing.T) {
	words := []uint32{0xdeadbeef, 1, 2}
	got, err := NewUint32s(words).Uint32s()
	if err != nil {
		t.Fatalf("Uint32s: %v", err)
	}
	for i := range words {
		if got[i] != words[i] {
			t.Errorf("word %d = %#x, want %#x", i, got[i], words[i])
		}
	}
	big, err := NewUint64s([]uint64{1 << 63, 9}).Uint64s()
	if err != nil || big[0] != 1<<63 || big[1] != 9 {
		t.Fatalf("Uint64s() = %v, %v", big, err)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NewUint32(89), "u32(89)"},
		{NewUint64s([]uint64{1, 2}), "u64[2](1 2)"},
		{NewBytes([]byte{0xab}), "bytes[1](0xab)"},
		{NewUint256(uint256.NewInt(10)), "u256(10)"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
