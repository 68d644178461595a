package tipping

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"
)

func TestSplitFeeIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	for i := 0; i < 2000; i++ {
		gross := new(big.Int).Rand(rng, limit)
		bps := uint16(rng.Intn(int(MaxPlatformFeeBps) + 1))
		fee, net, err := SplitFee(gross, bps)
		if err != nil {
			t.Fatalf("split %s@%d: %v", gross, bps, err)
		}
		if new(big.Int).Add(fee, net).Cmp(gross) != 0 {
			t.Fatalf("fee+net != gross for %s@%d", gross, bps)
		}
		if fee.Cmp(gross) > 0 || fee.Sign() < 0 || net.Sign() < 0 {
			t.Fatalf("out of range split for %s@%d: fee=%s net=%s", gross, bps, fee, net)
		}
		if bps == 0 && fee.Sign() != 0 {
			t.Fatalf("zero bps must yield zero fee")
		}
	}
}

func TestSplitFeeEdges(t *testing.T) {
	fee, net, err := SplitFee(big.NewInt(1000), 250)
	if err != nil || fee.Int64() != 25 || net.Int64() != 975 {
		t.Fatalf("unexpected split: %v %v %v", fee, net, err)
	}
	fee, _, _ = SplitFee(big.NewInt(39), 250)
	if fee.Int64() != 0 {
		t.Fatalf("fee must round down, got %s", fee)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	fee, net, err = SplitFee(huge, 1000)
	if err != nil || new(big.Int).Add(fee, net).Cmp(huge) != 0 {
		t.Fatalf("256-bit gross must split exactly: %v", err)
	}
	if _, _, err := SplitFee(new(big.Int).Lsh(big.NewInt(1), 256), 10); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	if _, _, err := SplitFee(big.NewInt(-1), 10); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, _, err := SplitFee(big.NewInt(1), 1001); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
}

func TestEvaluateStreakBranches(t *testing.T) {
	const now = int64(1_000_000)
	cases := []struct {
		name      string
		elapsed   int64
		prev      uint32
		want      uint32
		milestone bool
	}{
		{"increment", 3600, 2, 3, false},
		{"boundary below 24h", 86399, 2, 3, false},
		{"at 24h unchanged", 86400, 2, 2, false},
		{"below 48h unchanged", 172799, 6, 6, false},
		{"at 48h reset", 172800, 6, 1, false},
		{"milestone", 10, 9, 10, true},
		{"zero treated as one", 10, 0, 2, false},
		{"zero reset", 200000, 0, 1, false},
		{"clock skew", -50, 4, 5, true},
	}
	for _, tc := range cases {
		got := EvaluateStreak(now-tc.elapsed, now, tc.prev)
		if got.Streak != tc.want || got.Milestone != tc.milestone {
			t.Fatalf("%s: got %+v, want streak=%d milestone=%v", tc.name, got, tc.want, tc.milestone)
		}
	}
}

func TestEvaluateStreakNeverBelowOne(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	last := int64(0)
	streak := uint32(0)
	now := int64(1_700_000_000)
	for i := 0; i < 5000; i++ {
		now += rng.Int63n(4 * 86400)
		res := EvaluateStreak(last, now, streak)
		if res.Streak < 1 {
			t.Fatalf("streak dropped below one at step %d", i)
		}
		if res.Milestone && res.Streak%5 != 0 {
			t.Fatalf("milestone on non-multiple %d", res.Streak)
		}
		last, streak = now, res.Streak
	}
}

func TestEvaluateTopTip(t *testing.T) {
	if !EvaluateTopTip(big.NewInt(2), big.NewInt(1)) {
		t.Fatalf("larger tip must win")
	}
	if EvaluateTopTip(big.NewInt(1), big.NewInt(1)) {
		t.Fatalf("ties must not win")
	}
	if EvaluateTopTip(big.NewInt(0), nil) {
		t.Fatalf("zero must not win an empty board")
	}
	if !EvaluateTopTip(big.NewInt(1), nil) {
		t.Fatalf("positive tip must win an empty board")
	}
}
