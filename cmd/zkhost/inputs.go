package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/lambdaclass/zk-benchmarks/zkvm"
)

// inputArg is one parsed --input flag.
type inputArg struct {
	name string
	kind string

	word  uint64
	wide  *uint256.Int
	bytes []byte
}

// parseInput parses "name=kind:value". Kinds are u32, u64 and u256 for
// words (decimal, or 0x-prefixed hex for u256), hex for raw bytes and
// text for a raw UTF-8 string.
func parseInput(s string) (inputArg, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return inputArg{}, fmt.Errorf("input %q: want name=kind:value", s)
	}
	kind, value, ok := strings.Cut(rest, ":")
	if !ok {
		return inputArg{}, fmt.Errorf("input %q: want name=kind:value", s)
	}

	in := inputArg{name: name, kind: kind}
	var err error
	switch kind {
	case "u32":
		in.word, err = strconv.ParseUint(value, 10, 32)
	case "u64":
		in.word, err = strconv.ParseUint(value, 10, 64)
	case "u256":
		if strings.HasPrefix(value, "0x") {
			in.wide, err = uint256.FromHex(value)
		} else {
			in.wide, err = uint256.FromDecimal(value)
		}
	case "hex":
		in.bytes, err = hexutil.Decode(value)
	case "text":
		in.bytes = []byte(value)
	default:
		return inputArg{}, fmt.Errorf("input %q: unknown kind %q", s, kind)
	}
	if err != nil {
		return inputArg{}, fmt.Errorf("input %s: %v", name, err)
	}
	return in, nil
}

// apply adds the input to b.
func (in inputArg) apply(b *zkvm.ContextBuilder) {
	switch in.kind {
	case "u32":
		b.Uint32(in.name, uint32(in.word))
	case "u64":
		b.Uint64(in.name, in.word)
	case "u256":
		b.Uint256(in.name, in.wide)
	default:
		b.Input(in.name, in.bytes)
	}
}

// parseInputs parses every --input flag, keeping their order.
func parseInputs(raw []string) ([]inputArg, error) {
	out := make([]inputArg, 0, len(raw))
	for _, s := range raw {
		in, err := parseInput(s)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}
