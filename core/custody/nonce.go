package custody

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/util"
)

// ErrNonceReused is returned when an (offerer, nonce) pair is consumed a
// second time. A cancelled nonce reports the same error.
var ErrNonceReused = errors.New("nonce already used")

// NonceRegistry tracks consumed (offerer, nonce) pairs. Consumption is
// monotonic; a used nonce is never handed back except through a transaction
// rollback.
type NonceRegistry struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewNonceRegistry() *NonceRegistry {
	return &NonceRegistry{
		used: make(map[string]struct{}),
	}
}

// Use consumes the pair, failing with ErrNonceReused if already consumed.
func (r *NonceRegistry) Use(offerer util.EthereumAddress, nonce *big.Int) error {
	key := nonceKey(offerer, nonce)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.used[key]; ok {
		return errors.Wrapf(ErrNonceReused, "offerer %s nonce %s", offerer.Address(), nonceString(nonce))
	}
	r.used[key] = struct{}{}
	return nil
}

// Used reports whether the pair has been consumed.
func (r *NonceRegistry) Used(offerer util.EthereumAddress, nonce *big.Int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.used[nonceKey(offerer, nonce)]
	return ok
}

// Cancel burns a nonce on the offerer's behalf so the order carrying it can
// never fill. Cancelling an already-consumed nonce fails with ErrNonceReused.
func (r *NonceRegistry) Cancel(offerer util.EthereumAddress, nonce *big.Int) error {
	return r.Use(offerer, nonce)
}

// release hands a nonce back during transaction rollback.
func (r *NonceRegistry) release(offerer util.EthereumAddress, nonce *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.used, nonceKey(offerer, nonce))
}

func nonceKey(offerer util.EthereumAddress, nonce *big.Int) string {
	return offerer.Address() + ":" + nonceString(nonce)
}

func nonceString(nonce *big.Int) string {
	if nonce == nil {
		return "0"
	}
	return nonce.String()
}
