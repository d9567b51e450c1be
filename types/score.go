package types

import (
	"fmt"
	"math/bits"
	"strings"
)

// ScoreScale is the fixed-point denominator for reputation scores and edge
// weights. A Score of ScoreScale represents 1.0.
const ScoreScale uint64 = 1_000_000_000

const scoreFracDigits = 9

// Score is an unsigned fixed-point reputation value. All score arithmetic is
// integer-only so that propagation produces byte-identical results on every
// machine.
type Score uint64

// MulScore multiplies two fixed-point values with an intermediate 128-bit
// product, truncating toward zero.
func MulScore(a, b Score) Score {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, ScoreScale)
	return Score(q)
}

// AddScoreSat adds two scores, saturating at the maximum uint64 value.
func AddScoreSat(a, b Score) Score {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return Score(^uint64(0))
	}
	return Score(sum)
}

// MinScore returns the smaller of a and b.
func MinScore(a, b Score) Score {
	if a < b {
		return a
	}
	return b
}

// AbsDiff returns |a - b|.
func (s Score) AbsDiff(o Score) Score {
	if s > o {
		return s - o
	}
	return o - s
}

// String renders the score as a decimal fraction, e.g. "0.25".
func (s Score) String() string {
	whole := uint64(s) / ScoreScale
	frac := uint64(s) % ScoreScale
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, fracStr)
}

// ParseScore parses a decimal string such as "0.5" or "1" into a fixed-point
// score. Parsing is exact; more than 9 fractional digits is an error.
func ParseScore(s string) (Score, error) {
	if s == "" {
		return 0, fmt.Errorf("empty score string")
	}
	wholeStr, fracStr, _ := strings.Cut(s, ".")
	if wholeStr == "" {
		wholeStr = "0"
	}
	if len(fracStr) > scoreFracDigits {
		return 0, fmt.Errorf("score %q has more than %d fractional digits", s, scoreFracDigits)
	}
	var whole uint64
	for _, c := range wholeStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid score %q", s)
		}
		whole = whole*10 + uint64(c-'0')
	}
	var frac uint64
	for _, c := range fracStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid score %q", s)
		}
		frac = frac*10 + uint64(c-'0')
	}
	for i := len(fracStr); i < scoreFracDigits; i++ {
		frac *= 10
	}
	return Score(whole*ScoreScale + frac), nil
}
