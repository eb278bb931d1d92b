package math

import (
	"math"
	"math/big"
	"testing"
)

// TestBigToCompact ensures BigToCompact converts big integers to the expected
// compact representation.
func TestBigToCompact(t *testing.T) {
	tests := []struct {
		in  string
		out uint32
	}{
		{"0", 0},
		{"-1", 25231360},
		{"9223372036854775807", 142606335},
		{"922337203685477580712312312123487", 237861256},
	}

	for x, test := range tests {
		n := new(big.Int)
		n.SetString(test.in, 10)
		r := BigToCompact(n)
		if r != test.out {
			t.Errorf("TestBigToCompact test #%d failed: got %d want %d\n",
				x, r, test.out)
			return
		}
	}
}

// TestCompactToBig ensures CompactToBig converts numbers using the compact
// representation to the expected big integers.
func TestCompactToBig(t *testing.T) {
	tests := []struct {
		in  uint32
		out string
	}{
		{0, "0"},
		{10000000, "0"},
		{142606335, "9223370937343148032"},
		{25231360, "-1"},
		{237861256, "922337129789886856855791696084992"},
	}

	for i, test := range tests {
		n := CompactToBig(test.in)
		if n.String() != test.out {
			t.Errorf("TestCompactToBig test #%d failed: got %s want %s",
				i, n, test.out)
			return
		}
	}

	if CompactToBig(math.MaxUint32).Sign() >= 0 {
		t.Errorf("TestCompactToBig: expected MaxUint32 to decode to a negative number")
	}
}

func TestCalcWork(t *testing.T) {
	tests := []struct {
		bits uint32
		work string
	}{
		{0, "0"},
		{25231360, "0"},
		// 2^256 / 2^255 = 2
		{BigToCompact(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))), "2"},
	}

	for i, test := range tests {
		work := CalcWork(test.bits)
		if work.String() != test.work {
			t.Errorf("TestCalcWork test #%d failed: got %s want %s", i, work, test.work)
		}
	}

	easier := CalcWork(0x207fffff)
	harder := CalcWork(0x1d00ffff)
	if easier.Cmp(harder) >= 0 {
		t.Errorf("TestCalcWork: a lower target must yield more work")
	}
}
