package jsonrpc

import (
	"strings"
	"testing"

	"github.com/trustmesh/rpn/types"
)

func TestParseDigestRoundTrip(t *testing.T) {
	var d [32]byte
	for i := range d {
		d[i] = byte(i)
	}
	parsed, err := parseDigest(digestHex(d))
	if err != nil {
		t.Fatal(err)
	}
	if parsed != d {
		t.Fatal("round trip mismatch")
	}
}

func TestParseDigestRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"odd length", "abc"},
		{"not hex", strings.Repeat("zz", 32)},
		{"too short", strings.Repeat("ab", 31)},
		{"too long", strings.Repeat("ab", 33)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseDigest(tc.in); err == nil {
				t.Fatalf("parseDigest(%q): expected error", tc.in)
			}
		})
	}
}

func TestParseMerkleProof(t *testing.T) {
	var a, b [32]byte
	a[0], b[0] = 1, 2
	proof, err := parseMerkleProof(merkleProofParam{
		Index:    3,
		Siblings: []string{digestHex(a), digestHex(b)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if proof.Index != 3 || len(proof.Siblings) != 2 || proof.Siblings[0] != a || proof.Siblings[1] != b {
		t.Fatalf("proof = %+v", proof)
	}

	if _, err := parseMerkleProof(merkleProofParam{Siblings: []string{"zz"}}); err == nil {
		t.Fatal("expected sibling parse error")
	}
}

func TestParseStepRecord(t *testing.T) {
	var in, out [32]byte
	in[0], out[0] = 7, 8
	param := stepRecordParam{
		Index:             5,
		Pass:              1,
		Account:           "bob",
		PrevScore:         "0.25",
		NewScore:          "0.5",
		InputStateDigest:  digestHex(in),
		OutputStateDigest: digestHex(out),
	}
	step, err := parseStepRecord(param)
	if err != nil {
		t.Fatal(err)
	}
	if step.Index != 5 || step.Pass != 1 || step.Account != "bob" {
		t.Fatalf("step = %+v", step)
	}
	if step.PrevScore != types.Score(250_000_000) || step.NewScore != types.Score(500_000_000) {
		t.Fatalf("scores = %d/%d", step.PrevScore, step.NewScore)
	}
	if step.InputStateDigest != in || step.OutputStateDigest != out {
		t.Fatal("digest mismatch")
	}

	bad := param
	bad.NewScore = "0.1234567891" // more than nine fractional digits
	if _, err := parseStepRecord(bad); err == nil {
		t.Fatal("expected score parse error")
	}
	bad = param
	bad.InputStateDigest = "00"
	if _, err := parseStepRecord(bad); err == nil {
		t.Fatal("expected digest error")
	}
}
