package settlement

import (
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
)

// Transition names one edge of the settlement state machine.
type Transition string

const (
	TransitionChallenge          Transition = "challenge"
	TransitionFinalize           Transition = "finalize"
	TransitionFinalizeOptimistic Transition = "finalize_optimistic"
	TransitionCancel             Transition = "cancel"
)

// ErrInvalidTransition is returned when a transition is fired from a status
// that does not allow it, including any call against a terminal settlement.
var ErrInvalidTransition = errors.New("transition not allowed from current status")

// allowedTransitions is the whole state machine in one place. Terminal
// statuses have no entry, so every transition against them fails.
var allowedTransitions = map[types.SettlementStatus]map[Transition]types.SettlementStatus{
	types.SettlementStatusPending: {
		TransitionChallenge:          types.SettlementStatusChallenged,
		TransitionFinalizeOptimistic: types.SettlementStatusSuccess,
		TransitionFinalize:           types.SettlementStatusSuccess,
		TransitionCancel:             types.SettlementStatusCancelled,
	},
	types.SettlementStatusChallenged: {
		TransitionFinalize: types.SettlementStatusSuccess,
		TransitionCancel:   types.SettlementStatusCancelled,
	},
}

// nextStatus resolves where firing t from current lands.
func nextStatus(current types.SettlementStatus, t Transition) (types.SettlementStatus, error) {
	if next, ok := allowedTransitions[current][t]; ok {
		return next, nil
	}
	return "", errors.Wrapf(ErrInvalidTransition, "%s from %s", t, current)
}
