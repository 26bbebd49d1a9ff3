package guest

import (
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/lambdaclass/zk-benchmarks/journal"
)

// MaxSeriesCount bounds the number of terms one series commits.
const MaxSeriesCount = 1 << 16

// RecurrenceParams configures the Fibonacci-style recurrence family. The
// state (a, b) starts at (X0, X1) and advances as (a, b) <- (b, a+b) with
// wraparound at Width bits; term n is b after n advances, so term 0 is X1.
type RecurrenceParams struct {
	// Width is the word size in bits: 32, 64 or 256.
	Width int `yaml:"width" json:"width"`
	// Seeds are JSON strings: canonical JSON numbers are doubles and would
	// round seeds above 2^53.
	X0 uint64 `yaml:"x0" json:"x0,string"`
	X1 uint64 `yaml:"x1" json:"x1,string"`
	// SeedInputs, when set, names the two segments x0 and x1 are read from,
	// overriding X0 and X1.
	SeedInputs []string `yaml:"seed_inputs,omitempty" json:"seed_inputs,omitempty"`
	// N is the iteration count of a single-term program.
	N uint32 `yaml:"n" json:"n"`
	// NInput, when set, names the u32 segment N is read from.
	NInput string `yaml:"n_input,omitempty" json:"n_input,omitempty"`
	// Series commits several terms instead of term N.
	Series *Series `yaml:"series,omitempty" json:"series,omitempty"`
}

// Series selects terms Start, Start+Stride, ... (Count terms).
type Series struct {
	Start  uint32 `yaml:"start" json:"start"`
	Stride uint32 `yaml:"stride" json:"stride"`
	Count  uint32 `yaml:"count" json:"count"`
}

// last is the index of the final term in the series.
func (s *Series) last() uint64 {
	return uint64(s.Start) + uint64(s.Stride)*uint64(s.Count-1)
}

func (rp *RecurrenceParams) validate() error {
	switch rp.Width {
	case 32:
		if rp.X0 > math.MaxUint32 || rp.X1 > math.MaxUint32 {
			return errors.New("seed does not fit in 32 bits")
		}
	case 64, 256:
	default:
		return fmt.Errorf("unsupported width %d", rp.Width)
	}
	if n := len(rp.SeedInputs); n != 0 && n != 2 {
		return fmt.Errorf("seed_inputs needs 2 names, have %d", n)
	}
	if rp.Series != nil {
		if rp.N != 0 || rp.NInput != "" {
			return errors.New("series excludes n and n_input")
		}
		if rp.Series.Count == 0 || rp.Series.Count > MaxSeriesCount {
			return fmt.Errorf("series count %d out of range [1, %d]", rp.Series.Count, MaxSeriesCount)
		}
		if rp.Series.last() > math.MaxUint32 {
			return errors.New("series exceeds u32 term index")
		}
	}
	return nil
}

func (rp *RecurrenceParams) wordKind() string {
	return fmt.Sprintf("u%d", rp.Width)
}

func (rp *RecurrenceParams) inputs() []Input {
	var in []Input
	for _, name := range rp.SeedInputs {
		in = append(in, Input{Name: name, Kind: rp.wordKind()})
	}
	if rp.NInput != "" {
		in = append(in, Input{Name: rp.NInput, Kind: "u32"})
	}
	return in
}

func (rp *RecurrenceParams) wordType() journal.Type {
	switch rp.Width {
	case 32:
		return journal.U32
	case 64:
		return journal.U64
	}
	return journal.U256
}

func (rp *RecurrenceParams) layout() journal.Layout {
	count := 1
	if rp.Series != nil {
		count = int(rp.Series.Count)
	}
	l := make(journal.Layout, count)
	for i := range l {
		l[i] = rp.wordType()
	}
	return l
}

func (rp *RecurrenceParams) readSeed(env *Env, name string) (*uint256.Int, error) {
	switch rp.Width {
	case 32:
		v, err := env.ReadUint32(name)
		return uint256.NewInt(uint64(v)), err
	case 64:
		v, err := env.ReadUint64(name)
		return uint256.NewInt(v), err
	}
	return env.ReadUint256(name)
}

func (rp *RecurrenceParams) run(env *Env) error {
	r := newRecurrence(rp.Width, uint256.NewInt(rp.X0), uint256.NewInt(rp.X1))
	if len(rp.SeedInputs) == 2 {
		var err error
		if r.a, err = rp.readSeed(env, rp.SeedInputs[0]); err != nil {
			return err
		}
		if r.b, err = rp.readSeed(env, rp.SeedInputs[1]); err != nil {
			return err
		}
	}

	if rp.Series == nil {
		n := rp.N
		if rp.NInput != "" {
			var err error
			if n, err = env.ReadUint32(rp.NInput); err != nil {
				return err
			}
		}
		if err := r.advance(env, uint64(n)); err != nil {
			return err
		}
		return env.Commit(rp.value(r.b))
	}

	at := uint64(0)
	for i := uint32(0); i < rp.Series.Count; i++ {
		target := uint64(rp.Series.Start) + uint64(rp.Series.Stride)*uint64(i)
		if err := r.advance(env, target-at); err != nil {
			return err
		}
		at = target
		if err := env.Commit(rp.value(r.b)); err != nil {
			return err
		}
	}
	return nil
}

func (rp *RecurrenceParams) value(w *uint256.Int) journal.Value {
	switch rp.Width {
	case 32:
		return journal.NewUint32(uint32(w.Uint64()))
	case 64:
		return journal.NewUint64(w.Uint64())
	}
	return journal.NewUint256(w)
}

// recurrence is the running (a, b) state. A nil mask means 256-bit words,
// where uint256 addition already wraps.
type recurrence struct {
	a, b *uint256.Int
	mask *uint256.Int
}

func newRecurrence(width int, a, b *uint256.Int) *recurrence {
	r := &recurrence{a: a, b: b}
	if width < 256 {
		r.mask = new(uint256.Int).Lsh(uint256.NewInt(1), uint(width))
		r.mask.SubUint64(r.mask, 1)
	}
	return r
}

func (r *recurrence) advance(env *Env, n uint64) error {
	for i := uint64(0); i < n; i++ {
		next := new(uint256.Int).Add(r.a, r.b)
		if r.mask != nil {
			next.And(next, r.mask)
		}
		r.a, r.b = r.b, next
		state := r.b.Bytes32()
		if err := env.Step(state[:]); err != nil {
			return err
		}
	}
	return nil
}

// Term computes term n of the recurrence from (x0, x1) at the given width
// outside any guest environment.
func Term(width int, x0, x1 uint64, n uint32) (*uint256.Int, error) {
	rp := &RecurrenceParams{Width: width, X0: x0, X1: x1, N: n}
	if err := rp.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	r := newRecurrence(width, uint256.NewInt(x0), uint256.NewInt(x1))
	if err := r.advance(NewEnv(nil, EnvConfig{}), uint64(n)); err != nil {
		return nil, err
	}
	return r.b, nil
}
