package custody

import (
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/cosign"
	"github.com/driftswap/engine-go/core/types"
)

var (
	// ErrInvalidSignature is returned when a collect request's signature
	// does not recover to the funds' owner.
	ErrInvalidSignature = errors.New("invalid permit signature")

	// ErrPermitExpired is returned when a collect request arrives past its
	// deadline.
	ErrPermitExpired = errors.New("permit expired")
)

// PermitLedger is the permit-style transfer collaborator. Maker funds only
// move through Collect, and only under a signature from the maker themself
// over the digest named in the request.
type PermitLedger struct {
	nonces *NonceRegistry
}

func NewPermitLedger(nonces *NonceRegistry) *PermitLedger {
	return &PermitLedger{nonces: nonces}
}

var _ types.Collector = (*PermitLedger)(nil)

// Collect verifies the owner's authorization, consumes the (owner, nonce)
// pair, and pulls the funds into the spender within txn. On error the caller
// must roll back txn; rollback also releases the nonce.
func (p *PermitLedger) Collect(txn types.FundingTxn, req types.CollectRequest, at int64) error {
	if req.Owner.IsZero() {
		return errors.New("collect request missing owner")
	}
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return errors.New("collect request amount must be non-negative")
	}
	if at > req.Deadline {
		return errors.Wrapf(ErrPermitExpired, "deadline %d, now %d", req.Deadline, at)
	}

	recovered, err := cosign.Recover(req.Digest, req.Sig)
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if recovered.Common() != req.Owner.Common() {
		return errors.Wrapf(ErrInvalidSignature, "signed by %s, owner is %s", recovered.Address(), req.Owner.Address())
	}

	if err := p.nonces.Use(req.Owner, req.Nonce); err != nil {
		return err
	}
	owner, nonce := req.Owner, req.Nonce
	txn.OnRollback(func() {
		p.nonces.release(owner, nonce)
	})

	return txn.Transfer(req.Token, req.Owner, req.Spender, req.Amount)
}
