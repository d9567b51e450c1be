package stakeledger

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/trustmesh/rpn/errors"
)

func TestCreditAndBalances(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", uint256.NewInt(1000))
	l.Credit("alice", uint256.NewInt(500))

	if got := l.AvailableBalance("alice"); got.Uint64() != 1500 {
		t.Errorf("available = %s, want 1500", got.Dec())
	}
	if got := l.AvailableBalance("nobody"); !got.IsZero() {
		t.Errorf("unknown account has balance %s", got.Dec())
	}
}

func TestLockMovesAvailableToLocked(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", uint256.NewInt(1000))

	handle, err := l.Lock("alice", uint256.NewInt(400))
	if err != nil {
		t.Fatal(err)
	}
	if got := l.AvailableBalance("alice"); got.Uint64() != 600 {
		t.Errorf("available = %s, want 600", got.Dec())
	}
	if got := l.LockedBalance("alice"); got.Uint64() != 400 {
		t.Errorf("locked = %s, want 400", got.Dec())
	}
	rec := l.Escrow(handle)
	if rec == nil || rec.State != EscrowLocked || rec.Amount.Uint64() != 400 {
		t.Errorf("escrow record = %+v", rec)
	}
}

func TestLockInsufficientFunds(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", uint256.NewInt(100))

	if _, err := l.Lock("alice", uint256.NewInt(101)); !errors.IsCode(err, errors.ErrCodeInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
	if _, err := l.Lock("alice", uint256.NewInt(0)); !errors.IsCode(err, errors.ErrCodeStakeInsufficient) {
		t.Errorf("expected stake insufficient for zero lock, got %v", err)
	}
}

func TestReleaseToOwner(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", uint256.NewInt(1000))
	handle, _ := l.Lock("alice", uint256.NewInt(400))

	if err := l.Release(handle, "alice"); err != nil {
		t.Fatal(err)
	}
	if got := l.AvailableBalance("alice"); got.Uint64() != 1000 {
		t.Errorf("available = %s, want 1000", got.Dec())
	}
	if got := l.LockedBalance("alice"); !got.IsZero() {
		t.Errorf("locked = %s, want 0", got.Dec())
	}
	// double release
	if err := l.Release(handle, "alice"); !errors.IsCode(err, errors.ErrCodeEscrowNotFound) {
		t.Errorf("expected escrow not found, got %v", err)
	}
}

func TestReleaseToWinner(t *testing.T) {
	l := NewLedger()
	l.Credit("alice", uint256.NewInt(1000))
	handle, _ := l.Lock("alice", uint256.NewInt(400))

	if err := l.Release(handle, "bob"); err != nil {
		t.Fatal(err)
	}
	if got := l.AvailableBalance("bob"); got.Uint64() != 400 {
		t.Errorf("bob available = %s, want 400", got.Dec())
	}
	if got := l.AvailableBalance("alice"); got.Uint64() != 600 {
		t.Errorf("alice available = %s, want 600", got.Dec())
	}
}

func TestSlashBurnsAndPays(t *testing.T) {
	l := NewLedger()
	l.Credit("cheater", uint256.NewInt(10_000))
	handle, _ := l.Lock("cheater", uint256.NewInt(10_000))

	// 500 bps = 5% burned, remainder to the winner
	if err := l.Slash(handle, 500, "honest"); err != nil {
		t.Fatal(err)
	}
	if got := l.BurnedTotal(); got.Uint64() != 500 {
		t.Errorf("burned = %s, want 500", got.Dec())
	}
	if got := l.AvailableBalance("honest"); got.Uint64() != 9_500 {
		t.Errorf("honest available = %s, want 9500", got.Dec())
	}
	if got := l.AvailableBalance("cheater"); !got.IsZero() {
		t.Errorf("cheater available = %s, want 0", got.Dec())
	}
	if rec := l.Escrow(handle); rec.State != EscrowSlashed {
		t.Errorf("escrow state = %v, want slashed", rec.State)
	}
}

func TestSlashRejectsExcessBurn(t *testing.T) {
	l := NewLedger()
	l.Credit("a", uint256.NewInt(10))
	handle, _ := l.Lock("a", uint256.NewInt(10))
	if err := l.Slash(handle, 10_001, "b"); err == nil {
		t.Error("expected error for burn above 10000 bps")
	}
}

func TestEscrowReturnsCopy(t *testing.T) {
	l := NewLedger()
	l.Credit("a", uint256.NewInt(10))
	handle, _ := l.Lock("a", uint256.NewInt(10))
	rec := l.Escrow(handle)
	rec.Amount.SetUint64(999)
	if l.Escrow(handle).Amount.Uint64() != 10 {
		t.Error("Escrow exposes internal state")
	}
	if l.Escrow("missing") != nil {
		t.Error("unknown handle should return nil")
	}
}
