package types

import (
	"testing"

	fuzz "github.com/google/gofuzz"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		in      string
		want    Score
		wantErr bool
	}{
		{"0", 0, false},
		{"1", Score(ScoreScale), false},
		{"0.5", Score(ScoreScale / 2), false},
		{"0.000000001", 1, false},
		{"2.25", Score(2*ScoreScale + ScoreScale/4), false},
		{"0.8500", Score(850_000_000), false},
		{"", 0, true},
		{"1.0000000001", 0, true}, // more than 9 fractional digits
		{"-1", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		got, err := ParseScore(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseScore(%q): expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScore(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseScore(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestScoreStringRoundTrip(t *testing.T) {
	cases := []Score{0, 1, Score(ScoreScale), Score(ScoreScale / 2), Score(3*ScoreScale + 141_592_653)}
	for _, s := range cases {
		parsed, err := ParseScore(s.String())
		if err != nil {
			t.Fatalf("ParseScore(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("round trip of %d via %q gave %d", s, s.String(), parsed)
		}
	}
}

func TestMulScore(t *testing.T) {
	one := Score(ScoreScale)
	half := Score(ScoreScale / 2)
	quarter := Score(ScoreScale / 4)

	if got := MulScore(one, one); got != one {
		t.Errorf("1*1 = %s", got)
	}
	if got := MulScore(half, half); got != quarter {
		t.Errorf("0.5*0.5 = %s, want 0.25", got)
	}
	if got := MulScore(0, one); got != 0 {
		t.Errorf("0*1 = %s", got)
	}
	// truncation toward zero
	if got := MulScore(1, 1); got != 0 {
		t.Errorf("smallest*smallest = %d, want 0", got)
	}
}

func TestMulScoreCommutative(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 1000; i++ {
		var a, b uint64
		f.Fuzz(&a)
		f.Fuzz(&b)
		x, y := Score(a%(1<<40)), Score(b%(1<<40))
		if MulScore(x, y) != MulScore(y, x) {
			t.Fatalf("MulScore not commutative for %d, %d", x, y)
		}
	}
}

func TestAddScoreSat(t *testing.T) {
	if got := AddScoreSat(Score(^uint64(0)), 1); got != Score(^uint64(0)) {
		t.Errorf("saturating add overflowed: %d", got)
	}
	if got := AddScoreSat(2, 3); got != 5 {
		t.Errorf("2+3 = %d", got)
	}
}

func TestAbsDiff(t *testing.T) {
	if got := Score(3).AbsDiff(10); got != 7 {
		t.Errorf("AbsDiff(3,10) = %d", got)
	}
	if got := Score(10).AbsDiff(3); got != 7 {
		t.Errorf("AbsDiff(10,3) = %d", got)
	}
}
