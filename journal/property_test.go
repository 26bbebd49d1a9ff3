package journal

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// valueGen produces committed values of every kind.
func valueGen() gopter.Gen {
	return gen.OneGenOf(
		gen.UInt32().Map(func(v uint32) Value { return NewUint32(v) }),
		gen.UInt64().Map(func(v uint64) Value { return NewUint64(v) }),
		gen.SliceOfN(4, gen.UInt64()).Map(func(ws []uint64) Value {
			u := uint256.Int{ws[0], ws[1], ws[2], ws[3]}
			return NewUint256(&u)
		}),
		gen.SliceOf(gen.UInt32()).Map(func(ws []uint32) Value {
			if len(ws) == 0 {
				ws = []uint32{0}
			}
			return NewUint32s(ws)
		}),
		gen.SliceOf(gen.UInt8()).Map(func(b []uint8) Value {
			if len(b) == 0 {
				b = []uint8{0}
			}
			return NewBytes(b)
		}),
	)
}

// Property: Decode(Encode(V), LayoutOf(V)) == V.
func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode inverts encode", prop.ForAll(
		func(values []Value) bool {
			enc, err := Encode(values...)
			if err != nil {
				return false
			}
			got, err := DecodeExact(enc, LayoutOf(values))
			if err != nil || len(got) != len(values) {
				return false
			}
			for i := range values {
				if !got[i].Equal(values[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(valueGen()),
	))

	properties.TestingRun(t)
}

// Property: equal-typed values with different contents never share an
// encoding.
func TestEncodingInjectiveProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("distinct u64 words encode differently", prop.ForAll(
		func(a, b uint64) bool {
			ea, _ := Encode(NewUint64(a))
			eb, _ := Encode(NewUint64(b))
			return (a == b) == (string(ea) == string(eb))
		},
		gen.UInt64(), gen.UInt64(),
	))

	properties.TestingRun(t)
}

// Property: any journal shorter than the layout fails without values.
func TestShortJournalProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("truncated journals never decode", prop.ForAll(
		func(values []Value, cut uint8) bool {
			if len(values) == 0 {
				return true
			}
			enc, _ := Encode(values...)
			n := int(cut)%len(enc) + 1
			got, err := Decode(enc[:len(enc)-n], LayoutOf(values))
			return errors.Is(err, ErrLayoutMismatch) && got == nil
		},
		gen.SliceOf(valueGen()), gen.UInt8(),
	))

	properties.TestingRun(t)
}
