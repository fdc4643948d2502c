// Package custody holds and moves funds on behalf of the fill and settlement
// engines. A Ledger is the balance book; a Txn is a journaled unit of work
// whose transfers either all commit or are all compensated on rollback, which
// is what gives batch fills and settlement transitions their all-or-nothing
// behavior in a non-transactional environment.
package custody

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/util"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's
	// balance. No state changes when it is returned.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTxnClosed is returned when a committed or rolled-back transaction
	// is used again.
	ErrTxnClosed = errors.New("custody transaction already closed")
)

// Ledger is an in-memory token balance book keyed by (token, holder).
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]map[string]*big.Int),
	}
}

// Mint credits holder with amount of token. Non-positive amounts are ignored.
func (l *Ledger) Mint(token, holder util.EthereumAddress, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, holder, amount)
}

// BalanceOf returns a copy of holder's balance of token, zero if unknown.
func (l *Ledger) BalanceOf(token, holder util.EthereumAddress) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	holders, ok := l.balances[token.Address()]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := holders[holder.Address()]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// Begin opens a new transaction against the ledger.
func (l *Ledger) Begin() *Txn {
	return &Txn{ledger: l}
}

// move debits from and credits to under the ledger lock. The caller has
// already validated amount as positive.
func (l *Ledger) move(token, from, to util.EthereumAddress, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holders := l.balances[token.Address()]
	bal, ok := holders[from.Address()]
	if !ok || bal.Cmp(amount) < 0 {
		have := big.NewInt(0)
		if ok {
			have = bal
		}
		return errors.Wrapf(ErrInsufficientFunds,
			"token %s: %s holds %s, needs %s", token.Address(), from.Address(), have.String(), amount.String())
	}

	bal.Sub(bal, amount)
	l.credit(token, to, amount)
	return nil
}

func (l *Ledger) credit(token, holder util.EthereumAddress, amount *big.Int) {
	holders, ok := l.balances[token.Address()]
	if !ok {
		holders = make(map[string]*big.Int)
		l.balances[token.Address()] = holders
	}
	bal, ok := holders[holder.Address()]
	if !ok {
		bal = big.NewInt(0)
		holders[holder.Address()] = bal
	}
	bal.Add(bal, amount)
}

// Txn journals transfers against a Ledger. Transfers apply immediately;
// Rollback replays the journal in reverse to restore the starting state.
// Not safe for concurrent use.
type Txn struct {
	ledger *Ledger
	undo   []func()
	closed bool
}

// Transfer moves amount of token between holders. Zero amounts are a no-op;
// negative and nil amounts are rejected.
func (t *Txn) Transfer(token, from, to util.EthereumAddress, amount *big.Int) error {
	if t.closed {
		return errors.WithStack(ErrTxnClosed)
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.New("transfer amount must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}

	if err := t.ledger.move(token, from, to, amount); err != nil {
		return err
	}

	reversed := new(big.Int).Set(amount)
	t.undo = append(t.undo, func() {
		// The reverse move cannot fail: undo actions run in reverse
		// order, so the receiving balance still holds what this
		// transfer delivered.
		_ = t.ledger.move(token, to, from, reversed)
	})
	return nil
}

// OnRollback registers a compensating action to run if the transaction rolls
// back. Actions run in reverse registration order.
func (t *Txn) OnRollback(undo func()) {
	if t.closed || undo == nil {
		return
	}
	t.undo = append(t.undo, undo)
}

// Commit finalizes the transaction and discards the journal.
func (t *Txn) Commit() error {
	if t.closed {
		return errors.WithStack(ErrTxnClosed)
	}
	t.closed = true
	t.undo = nil
	return nil
}

// Rollback runs every journaled compensation in reverse order and closes the
// transaction.
func (t *Txn) Rollback() error {
	if t.closed {
		return errors.WithStack(ErrTxnClosed)
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.closed = true
	t.undo = nil
	return nil
}
