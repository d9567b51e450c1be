package utils

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestUint256FromString(t *testing.T) {
	tests := []struct {
		in      string
		want    *uint256.Int
		wantErr bool
	}{
		{in: "", want: uint256.NewInt(0)},
		{in: "0", want: uint256.NewInt(0)},
		{in: "1000000", want: uint256.NewInt(1_000_000)},
		{in: "0x10", want: uint256.NewInt(16)},
		{in: "0X10", want: uint256.NewInt(16)},
		{in: "0xzz", wantErr: true},
		{in: "12zz", wantErr: true},
		{in: "-5", wantErr: true},
	}
	for _, tc := range tests {
		got, err := Uint256FromString(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Uint256FromString(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Uint256FromString(%q): %v", tc.in, err)
			continue
		}
		if got.Cmp(tc.want) != 0 {
			t.Errorf("Uint256FromString(%q) = %s, want %s", tc.in, got.Dec(), tc.want.Dec())
		}
	}
}

func TestUint256ToString(t *testing.T) {
	if got := Uint256ToString(nil); got != "0" {
		t.Fatalf("nil = %q", got)
	}
	if got := Uint256ToString(uint256.NewInt(1_000_000)); got != "1000000" {
		t.Fatalf("1000000 = %q", got)
	}
}

func TestEpochForHeight(t *testing.T) {
	tests := []struct {
		height, length, want uint64
	}{
		{0, 100, 0},
		{99, 100, 0},
		{100, 100, 1},
		{101, 100, 1},
		{250, 100, 2},
		{42, 0, 0},
	}
	for _, tc := range tests {
		if got := EpochForHeight(tc.height, tc.length); got != tc.want {
			t.Errorf("EpochForHeight(%d, %d) = %d, want %d", tc.height, tc.length, got, tc.want)
		}
	}
}

func TestFirstHeightInEpoch(t *testing.T) {
	if got := FirstHeightInEpoch(3, 100); got != 300 {
		t.Fatalf("FirstHeightInEpoch(3, 100) = %d", got)
	}
	if got := FirstHeightInEpoch(0, 100); got != 0 {
		t.Fatalf("FirstHeightInEpoch(0, 100) = %d", got)
	}
}

func TestIsEpochBoundary(t *testing.T) {
	if !IsEpochBoundary(200, 100) {
		t.Fatal("200 should be a boundary of length 100")
	}
	if IsEpochBoundary(201, 100) {
		t.Fatal("201 is not a boundary")
	}
	if IsEpochBoundary(200, 0) {
		t.Fatal("zero length has no boundaries")
	}
}

func TestShortenLog(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"123456789", "1234...6789"},
		{"1234567890abcdef", "1234...cdef"},
		{"1234567890abcdef0", "12345678...0abcdef0"},
	}
	for _, tc := range tests {
		if got := ShortenLog(tc.in); got != tc.want {
			t.Errorf("ShortenLog(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
