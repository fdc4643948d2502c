package types

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/driftswap/engine-go/core/util"
)

// EventKind names the engine events observers can subscribe to.
type EventKind string

const (
	EventKindFill                 EventKind = "FILL"
	EventKindInitiateSettlement   EventKind = "INITIATE_SETTLEMENT"
	EventKindSettlementChallenged EventKind = "SETTLEMENT_CHALLENGED"
	EventKindSettlementFinalized  EventKind = "SETTLEMENT_FINALIZED"
	EventKindSettlementCancelled  EventKind = "SETTLEMENT_CANCELLED"
)

// Envelope wraps one emitted event with a relay ID and the host time at
// which the emitting operation ran.
type Envelope struct {
	ID      string    `json:"id"` // uuid, assigned at emission
	Kind    EventKind `json:"kind"`
	At      int64     `json:"at"`
	Payload any       `json:"payload"`
}

// NewEnvelope stamps a payload for delivery.
func NewEnvelope(kind EventKind, at int64, payload any) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Kind:    kind,
		At:      at,
		Payload: payload,
	}
}

// FillEvent is emitted once per order on a successful fill.
type FillEvent struct {
	OrderHash common.Hash          `json:"order_hash"`
	Filler    util.EthereumAddress `json:"filler"`
	Offerer   util.EthereumAddress `json:"offerer"`
	Nonce     *big.Int             `json:"nonce"`
}

// InitiateSettlementEvent is emitted when a settlement is opened.
type InitiateSettlementEvent struct {
	OrderHash         common.Hash          `json:"order_hash"`
	Offerer           util.EthereumAddress `json:"offerer"`
	OriginFiller      util.EthereumAddress `json:"origin_filler"`
	DestinationFiller util.EthereumAddress `json:"destination_filler"`
	FillDeadline      int64                `json:"fill_deadline"`
}

// SettlementChallengedEvent is emitted when a bonded challenge lands.
type SettlementChallengedEvent struct {
	OrderHash  common.Hash          `json:"order_hash"`
	Challenger util.EthereumAddress `json:"challenger"`
}

// SettlementFinalizedEvent is emitted on either finalization path.
type SettlementFinalizedEvent struct {
	OrderHash  common.Hash `json:"order_hash"`
	Optimistic bool        `json:"optimistic"` // true when no oracle proof was involved
}

// SettlementCancelledEvent is emitted on cancellation.
type SettlementCancelledEvent struct {
	OrderHash  common.Hash `json:"order_hash"`
	Challenged bool        `json:"challenged"` // true when collateral was split
}

// EventSink receives emitted events. Implementations must not block; the
// engine publishes inline from state-mutating operations.
type EventSink interface {
	Publish(e Envelope)
}

// MemorySink buffers events for inspection, mostly in tests and examples.
type MemorySink struct {
	mu     sync.Mutex
	events []Envelope
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Publish(e Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of everything published so far.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}

// ByKind returns published events of one kind, in publication order.
func (m *MemorySink) ByKind(kind EventKind) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Publish(Envelope) {}
