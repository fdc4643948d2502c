package settlement

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
)

const (
	defaultListLimit = 100
)

// MemoryStore keeps settlement records in process memory. It backs tests,
// examples, and single-node deployments that can afford to lose history on
// restart; durable deployments use the SQLite store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[common.Hash]*types.ActiveSettlement
	order   []common.Hash // insertion order, oldest first
}

var _ types.SettlementStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[common.Hash]*types.ActiveSettlement),
	}
}

func (m *MemoryStore) Get(orderHash common.Hash) (*types.ActiveSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[orderHash]
	if !ok {
		return nil, errors.Wrapf(types.ErrSettlementNotFound, "order %s", orderHash.Hex())
	}
	return copySettlement(record), nil
}

func (m *MemoryStore) Put(s *types.ActiveSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[s.OrderHash]; ok {
		return errors.Wrapf(types.ErrSettlementExists, "order %s", s.OrderHash.Hex())
	}
	m.records[s.OrderHash] = copySettlement(s)
	m.order = append(m.order, s.OrderHash)
	return nil
}

func (m *MemoryStore) Update(s *types.ActiveSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[s.OrderHash]; !ok {
		return errors.Wrapf(types.ErrSettlementNotFound, "order %s", s.OrderHash.Hex())
	}
	m.records[s.OrderHash] = copySettlement(s)
	return nil
}

func (m *MemoryStore) List(input types.ListSettlementsInput) ([]*types.ActiveSettlement, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	limit := defaultListLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	offset := 0
	if input.Offset != nil {
		offset = *input.Offset
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.ActiveSettlement
	skipped := 0
	// Newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		record := m.records[m.order[i]]
		if !matchesFilter(record, input) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, copySettlement(record))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func matchesFilter(record *types.ActiveSettlement, input types.ListSettlementsInput) bool {
	if input.Status != nil && record.Status != *input.Status {
		return false
	}
	if input.Offerer != nil && record.Offerer.Common() != input.Offerer.Common() {
		return false
	}
	if input.InitiatedOn != nil && record.InitiatedOn() != *input.InitiatedOn {
		return false
	}
	return true
}

// copySettlement deep-copies a record so callers cannot mutate stored state
// through aliased big.Int or slice fields.
func copySettlement(s *types.ActiveSettlement) *types.ActiveSettlement {
	out := *s
	out.Input.Amount = copyBig(s.Input.Amount)
	out.Input.MaxAmount = copyBig(s.Input.MaxAmount)
	out.FillerCollateral.Amount = copyBig(s.FillerCollateral.Amount)
	if s.ChallengerCollateral != nil {
		out.ChallengerCollateral = &types.Collateral{
			Token:  s.ChallengerCollateral.Token,
			Amount: copyBig(s.ChallengerCollateral.Amount),
		}
	}
	if s.Outputs != nil {
		out.Outputs = make([]types.OutputToken, len(s.Outputs))
		for i, o := range s.Outputs {
			out.Outputs[i] = o
			out.Outputs[i].Amount = copyBig(o.Amount)
		}
	}
	return &out
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
