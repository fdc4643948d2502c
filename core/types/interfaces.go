package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/util"
)

// FundingTxn is one journaled unit of fund movement. Every transfer recorded
// against it either commits with the rest of the operation or is rolled back;
// implementations come from the custody package.
type FundingTxn interface {
	// Transfer moves amount of token from one holder to another, failing
	// without effect when the balance is insufficient.
	Transfer(token, from, to util.EthereumAddress, amount *big.Int) error
	// OnRollback registers a compensating action to run if the transaction
	// rolls back. Collaborators use it to undo non-balance state they
	// mutate, such as consumed nonces.
	OnRollback(undo func())
}

// CollectRequest authorizes pulling maker funds. Signature must be the
// owner's own; a batch never lets one maker's signature move another maker's
// funds.
type CollectRequest struct {
	Owner    util.EthereumAddress
	Spender  util.EthereumAddress // custodian the funds move to
	Token    util.EthereumAddress
	Amount   *big.Int
	Nonce    *big.Int
	Deadline int64
	Digest   common.Hash // digest the owner signed
	Sig      []byte
}

// Collector is the permit-style transfer collaborator: it verifies the
// owner's authorization, consumes the nonce, and moves the funds within the
// supplied transaction. On error the caller must roll back txn.
type Collector interface {
	Collect(txn FundingTxn, req CollectRequest, at int64) error
}

// IResolver turns a signed order and a fill context into a resolved order.
type IResolver interface {
	Resolve(signed SignedOrder, fctx FillContext) (*ResolvedOrder, error)
}

// ValidationHook is a maker-selected fill policy, looked up by the validation
// contract identity an order declares. Must be read-only.
type ValidationHook interface {
	Validate(filler util.EthereumAddress, resolved *ResolvedOrder, data []byte, fctx FillContext) error
}

// HookRunner executes a pre- or post-fill delegated hook declared by an
// order. Errors abort the whole batch.
type HookRunner interface {
	RunHook(target util.EthereumAddress, data []byte, resolved *ResolvedOrder) error
}

// FillCallback is the filler's one chance, per batch, to source outputs.
// It runs between input collection and output distribution.
type FillCallback interface {
	OnFill(resolved []*ResolvedOrder, fillerData []byte) error
}

// FillCallbackFunc adapts a function to the FillCallback interface.
type FillCallbackFunc func(resolved []*ResolvedOrder, fillerData []byte) error

func (f FillCallbackFunc) OnFill(resolved []*ResolvedOrder, fillerData []byte) error {
	return f(resolved, fillerData)
}

// FeeController computes protocol-fee outputs appended to an order's output
// list after resolution. Called read-only; results are validated for
// duplicate (token, recipient) pairs before use.
type FeeController interface {
	FeeOutputs(resolved *ResolvedOrder) []OutputToken
}

// Store errors shared by every SettlementStore implementation.
var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrSettlementExists   = errors.New("settlement already exists")
)

// SettlementStore persists ActiveSettlement records keyed by order hash.
// Implementations need not be safe for concurrent use; the engine serializes
// state-mutating operations.
type SettlementStore interface {
	// Get returns the record or ErrSettlementNotFound.
	Get(orderHash common.Hash) (*ActiveSettlement, error)
	// Put inserts a new record, failing with ErrSettlementExists when the
	// order hash is already present.
	Put(s *ActiveSettlement) error
	// Update overwrites an existing record or fails with
	// ErrSettlementNotFound.
	Update(s *ActiveSettlement) error
	// List returns records matching the filter, newest first.
	List(input ListSettlementsInput) ([]*ActiveSettlement, error)
	// Close releases any held resources.
	Close() error
}
