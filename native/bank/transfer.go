package bank

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must not be negative")
	errNilState            = errors.New("bank: state manager required")
)

// BalanceStore is the account balance view a Transferer operates on.
type BalanceStore interface {
	Balance(addr [20]byte) (*big.Int, error)
	SetBalance(addr [20]byte, amount *big.Int) error
}

// Transferer moves native token balances between accounts held in state.
type Transferer struct {
	state BalanceStore
}

// NewTransferer binds a transferer to the supplied balance store.
func NewTransferer(state BalanceStore) *Transferer {
	return &Transferer{state: state}
}

// Transfer debits from and credits to. The sender's balance must cover amount
// even when from and to are the same account; nothing is written otherwise.
func (t *Transferer) Transfer(from, to [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := t.state.Balance(from)
	if err != nil {
		return fmt.Errorf("bank: load sender balance: %w", err)
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	// a funded self-transfer moves nothing
	if from == to {
		return nil
	}
	toBal, err := t.state.Balance(to)
	if err != nil {
		return fmt.Errorf("bank: load recipient balance: %w", err)
	}
	if err := t.state.SetBalance(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return t.state.SetBalance(to, new(big.Int).Add(toBal, amount))
}

// Mint credits amount to addr without a matching debit. It is used for
// genesis allocations.
func (t *Transferer) Mint(addr [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	bal, err := t.state.Balance(addr)
	if err != nil {
		return err
	}
	return t.state.SetBalance(addr, new(big.Int).Add(bal, amount))
}
