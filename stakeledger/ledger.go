package stakeledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/trustmesh/rpn/errors"
	"github.com/trustmesh/rpn/logx"
	"github.com/trustmesh/rpn/monitoring"
)

// EscrowState tracks an escrow record through its lifecycle
type EscrowState int

const (
	EscrowLocked EscrowState = iota
	EscrowReleased
	EscrowSlashed
)

// EscrowRecord is one locked bond
type EscrowRecord struct {
	Handle  string       `json:"handle"`
	Account string       `json:"account"`
	Amount  *uint256.Int `json:"amount"`
	State   EscrowState  `json:"state"`
}

type balance struct {
	available *uint256.Int
	locked    *uint256.Int
}

// Ledger escrows bonds from submitters and challengers and pays out or burns
// based on game outcomes. It implements interfaces.Escrow.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]*balance
	escrows  map[string]*EscrowRecord
	burned   *uint256.Int // deterrent fund
}

// NewLedger creates an empty stake ledger
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]*balance),
		escrows:  make(map[string]*EscrowRecord),
		burned:   uint256.NewInt(0),
	}
}

func (l *Ledger) getOrCreateBalance(account string) *balance {
	b, ok := l.balances[account]
	if !ok {
		b = &balance{available: uint256.NewInt(0), locked: uint256.NewInt(0)}
		l.balances[account] = b
	}
	return b
}

// Credit funds an account. Used for genesis allocations and payouts.
func (l *Ledger) Credit(account string, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getOrCreateBalance(account)
	b.available.Add(b.available, amount)
}

// AvailableBalance returns the spendable balance of an account.
func (l *Ledger) AvailableBalance(account string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if b, ok := l.balances[account]; ok {
		return new(uint256.Int).Set(b.available)
	}
	return uint256.NewInt(0)
}

// LockedBalance returns the escrowed balance of an account.
func (l *Ledger) LockedBalance(account string) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if b, ok := l.balances[account]; ok {
		return new(uint256.Int).Set(b.locked)
	}
	return uint256.NewInt(0)
}

// BurnedTotal returns the cumulative deterrent fund.
func (l *Ledger) BurnedTotal() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(uint256.Int).Set(l.burned)
}

// Lock escrows amount from account and returns the escrow handle.
func (l *Ledger) Lock(account string, amount *uint256.Int) (string, error) {
	if amount == nil || amount.IsZero() {
		return "", errors.NewError(errors.ErrCodeStakeInsufficient, errors.ErrMsgStakeInsufficient)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getOrCreateBalance(account)
	if b.available.Cmp(amount) < 0 {
		return "", errors.NewError(errors.ErrCodeInsufficientFunds, errors.ErrMsgInsufficientFunds)
	}
	b.available.Sub(b.available, amount)
	b.locked.Add(b.locked, amount)

	handle := uuid.Must(uuid.NewV7()).String()
	l.escrows[handle] = &EscrowRecord{
		Handle:  handle,
		Account: account,
		Amount:  new(uint256.Int).Set(amount),
		State:   EscrowLocked,
	}

	logx.Debug("STAKE_LEDGER", fmt.Sprintf("Locked stake | account=%s amount=%s handle=%s", account, amount.Dec(), handle))
	return handle, nil
}

// Release returns the full escrowed amount to the given account. Releasing to
// the original owner unlocks; releasing to anyone else is a payout.
func (l *Ledger) Release(handle string, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.escrows[handle]
	if !ok || rec.State != EscrowLocked {
		return errors.NewError(errors.ErrCodeEscrowNotFound, errors.ErrMsgEscrowNotFound)
	}

	owner := l.getOrCreateBalance(rec.Account)
	owner.locked.Sub(owner.locked, rec.Amount)
	dest := l.getOrCreateBalance(to)
	dest.available.Add(dest.available, rec.Amount)
	rec.State = EscrowReleased

	logx.Debug("STAKE_LEDGER", fmt.Sprintf("Released stake | handle=%s to=%s amount=%s", handle, to, rec.Amount.Dec()))
	return nil
}

// Slash burns burnBps basis points of the escrow to the deterrent fund and
// pays the remainder to beneficiary.
func (l *Ledger) Slash(handle string, burnBps uint32, beneficiary string) error {
	if burnBps > 10_000 {
		return fmt.Errorf("burn fraction %d exceeds 10000 basis points", burnBps)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.escrows[handle]
	if !ok || rec.State != EscrowLocked {
		return errors.NewError(errors.ErrCodeEscrowNotFound, errors.ErrMsgEscrowNotFound)
	}

	owner := l.getOrCreateBalance(rec.Account)
	owner.locked.Sub(owner.locked, rec.Amount)

	burn := new(uint256.Int).Mul(rec.Amount, uint256.NewInt(uint64(burnBps)))
	burn.Div(burn, uint256.NewInt(10_000))
	payout := new(uint256.Int).Sub(rec.Amount, burn)

	l.burned.Add(l.burned, burn)
	dest := l.getOrCreateBalance(beneficiary)
	dest.available.Add(dest.available, payout)
	rec.State = EscrowSlashed

	monitoring.AddSlashedAmount(float64(burn.Uint64()))
	logx.Info("STAKE_LEDGER", fmt.Sprintf("Slashed stake | handle=%s owner=%s beneficiary=%s payout=%s burned=%s",
		handle, rec.Account, beneficiary, payout.Dec(), burn.Dec()))
	return nil
}

// Escrow returns a copy of the record for inspection, nil if unknown.
func (l *Ledger) Escrow(handle string) *EscrowRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.escrows[handle]
	if !ok {
		return nil
	}
	cp := *rec
	cp.Amount = new(uint256.Int).Set(rec.Amount)
	return &cp
}
