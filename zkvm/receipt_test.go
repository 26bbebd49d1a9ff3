package zkvm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambdaclass/zk-benchmarks/journal"
)

func sampleReceipt() *Receipt {
	return &Receipt{
		ProofSystem: ProofSystemLocal,
		Journal:     []byte{0, 0, 0, 89},
		Seal:        bytes.Repeat([]byte{0xab}, 8),
	}
}

func TestReceipt_BinaryLayout(t *testing.T) {
	enc, err := sampleReceipt().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(enc) != receiptHeaderSize+4+4+8 {
		t.Fatalf("encoded length = %d", len(enc))
	}
	if v := binary.LittleEndian.Uint16(enc); v != ReceiptVersion {
		t.Fatalf("version = %d", v)
	}
	if enc[2] != byte(ProofSystemLocal) {
		t.Fatalf("proof system byte = %d", enc[2])
	}
	if n := binary.LittleEndian.Uint32(enc[3:]); n != 4 {
		t.Fatalf("journal length = %d", n)
	}
}

func TestReceipt_BinaryRoundTrip(t *testing.T) {
	r := sampleReceipt()
	enc, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := ParseReceipt(enc)
	if err != nil {
		t.Fatalf("ParseReceipt: %v", err)
	}
	if got.ProofSystem != r.ProofSystem || !bytes.Equal(got.Journal, r.Journal) || !bytes.Equal(got.Seal, r.Seal) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	// Parsed fields own their memory.
	enc[receiptHeaderSize] = 0xff
	if got.Journal[0] != 0 {
		t.Fatal("parsed journal aliases the input buffer")
	}
}

func TestReceipt_EmptyJournal(t *testing.T) {
	r := &Receipt{ProofSystem: ProofSystemAttested}
	enc, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := ParseReceipt(enc)
	if err != nil {
		t.Fatalf("ParseReceipt: %v", err)
	}
	if len(got.Journal) != 0 || len(got.Seal) != 0 {
		t.Fatalf("expected empty journal and seal, got %+v", got)
	}
}

func TestReceipt_Malformed(t *testing.T) {
	good, _ := sampleReceipt().MarshalBinary()

	badVersion := append([]byte(nil), good...)
	badVersion[0] = 9
	badSystem := append([]byte(nil), good...)
	badSystem[2] = 0x7f
	longJournal := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(longJournal[3:], 1<<20)

	tests := map[string][]byte{
		"empty":          nil,
		"short header":   good[:5],
		"bad version":    badVersion,
		"bad system":     badSystem,
		"journal length": longJournal,
		"no seal length": good[:receiptHeaderSize+4],
		"truncated seal": good[:len(good)-1],
		"trailing byte":  append(append([]byte(nil), good...), 0),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseReceipt(data); !errors.Is(err, ErrMalformedReceipt) {
				t.Fatalf("err = %v, want ErrMalformedReceipt", err)
			}
		})
	}
}

func TestReceipt_MarshalUnknownSystem(t *testing.T) {
	r := &Receipt{ProofSystem: 0}
	if _, err := r.MarshalBinary(); !errors.Is(err, ErrMalformedReceipt) {
		t.Fatalf("MarshalBinary err = %v", err)
	}
	if _, err := json.Marshal(r); err == nil {
		t.Fatal("MarshalJSON accepted an unknown proof system")
	}
}

func TestReceipt_JSON(t *testing.T) {
	r := sampleReceipt()
	enc, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	want := `{"version":1,"proof_system":"local","journal":"0x00000059","seal":"0xabababababababab"}`
	if string(enc) != want {
		t.Fatalf("json = %s\nwant %s", enc, want)
	}
	var got Receipt
	if err := json.Unmarshal(enc, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got.ProofSystem != ProofSystemLocal || !bytes.Equal(got.Journal, r.Journal) || !bytes.Equal(got.Seal, r.Seal) {
		t.Fatalf("JSON round trip mismatch: %+v", got)
	}
}

func TestReceipt_JSONMalformed(t *testing.T) {
	for _, in := range []string{
		`{"version":2,"proof_system":"local","journal":"0x","seal":"0x"}`,
		`{"version":1,"proof_system":"groth16","journal":"0x","seal":"0x"}`,
		`{"version":1,"proof_system":"local","journal":"zz","seal":"0x"}`,
	} {
		var r Receipt
		if err := json.Unmarshal([]byte(in), &r); !errors.Is(err, ErrMalformedReceipt) {
			t.Errorf("Unmarshal(%s) err = %v, want ErrMalformedReceipt", in, err)
		}
	}
}

func TestReceipt_Digest(t *testing.T) {
	a := sampleReceipt()
	b := sampleReceipt()
	da, err := a.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	db, _ := b.Digest()
	if da != db {
		t.Fatal("equal receipts have different digests")
	}
	b.Seal[0] ^= 1
	db, _ = b.Digest()
	if da == db {
		t.Fatal("seal change did not change digest")
	}
}

func TestReceipt_Decode(t *testing.T) {
	values, err := sampleReceipt().Decode(journal.Layout{journal.U32})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := values[0].Uint32(); v != 89 {
		t.Fatalf("decoded %d, want 89", v)
	}
	if _, err := DecodeJournal(nil, journal.Layout{journal.U32}); !errors.Is(err, ErrMalformedReceipt) {
		t.Fatalf("DecodeJournal(nil) err = %v", err)
	}
	if _, err := sampleReceipt().Decode(journal.Layout{journal.U64}); !errors.Is(err, journal.ErrLayoutMismatch) {
		t.Fatalf("short journal err = %v", err)
	}
}

// --- Claims ---

func TestClaimDigest(t *testing.T) {
	id := common.HexToHash("0x01")
	base := ClaimDigest(id, []byte{1, 2, 3})
	if base != ClaimDigest(id, []byte{1, 2, 3}) {
		t.Fatal("claim digest not deterministic")
	}
	if base == ClaimDigest(common.HexToHash("0x02"), []byte{1, 2, 3}) {
		t.Fatal("claim ignores program identity")
	}
	if base == ClaimDigest(id, []byte{1, 2, 4}) {
		t.Fatal("claim ignores journal")
	}
}

func TestParseProofSystem(t *testing.T) {
	for _, ps := range []ProofSystem{ProofSystemLocal, ProofSystemAttested} {
		got, err := ParseProofSystem(ps.String())
		if err != nil || got != ps {
			t.Fatalf("ParseProofSystem(%q) = %v, %v", ps.String(), got, err)
		}
	}
	if _, err := ParseProofSystem("plonk"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown proof system err = %v", err)
	}
	if ProofSystem(9).Valid() {
		t.Fatal("proof system 9 reported valid")
	}
}
