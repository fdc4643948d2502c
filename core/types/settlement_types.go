package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-sql/civil"

	"github.com/driftswap/engine-go/core/util"
)

// SettlementStatus is the lifecycle state of a cross-domain settlement.
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "PENDING"    // escrowed, awaiting proof or timeout
	SettlementStatusChallenged SettlementStatus = "CHALLENGED" // bonded dispute, optimistic path frozen
	SettlementStatusCancelled  SettlementStatus = "CANCELLED"  // terminal: maker refunded
	SettlementStatusSuccess    SettlementStatus = "SUCCESS"    // terminal: filler paid
)

var validSettlementStatuses = map[SettlementStatus]bool{
	SettlementStatusPending:    true,
	SettlementStatusChallenged: true,
	SettlementStatusCancelled:  true,
	SettlementStatusSuccess:    true,
}

func (s SettlementStatus) Valid() bool {
	return validSettlementStatuses[s]
}

// Terminal reports whether no further transition is permitted.
func (s SettlementStatus) Terminal() bool {
	return s == SettlementStatusCancelled || s == SettlementStatusSuccess
}

// Collateral is a bonded amount of a single token.
type Collateral struct {
	Token  util.EthereumAddress
	Amount *big.Int
}

func (c *Collateral) Validate() error {
	if c.Token.IsZero() {
		return fmt.Errorf("collateral token is required")
	}
	if c.Amount == nil || c.Amount.Sign() <= 0 {
		return fmt.Errorf("collateral amount must be positive")
	}
	return nil
}

// ActiveSettlement is the persisted record of one in-flight settlement,
// keyed by order hash. Created by initiate, mutated only by the transition
// operations, immutable once a terminal status is reached.
type ActiveSettlement struct {
	OrderHash common.Hash
	Status    SettlementStatus

	Offerer           util.EthereumAddress
	OriginFiller      util.EthereumAddress // posts collateral, receives escrow on success
	DestinationFiller util.EthereumAddress // proves delivery on the destination domain
	Challenger        util.EthereumAddress // zero until a challenge is posted
	Oracle            util.EthereumAddress // only identity allowed to finalize with proof

	FillDeadline       int64 // delivery must have happened by this time
	OptimisticDeadline int64 // unchallenged settlements may pay out from this time
	ChallengeDeadline  int64 // last moment to challenge; cancellation opens after it

	Input                InputToken    // escrowed maker input at its resolved amount
	FillerCollateral     Collateral    // escrowed from the origin filler at initiate
	ChallengerCollateral *Collateral   // escrowed bond, nil until challenged
	Outputs              []OutputToken // owed on the destination domain

	InitiatedAt int64 // unix seconds, set by initiate
}

// InitiatedOn returns the civil date the settlement was opened, for
// date-keyed store queries.
func (a *ActiveSettlement) InitiatedOn() civil.Date {
	return civil.DateOf(unixToUTC(a.InitiatedAt))
}

// Challenged reports whether a challenger bond is held.
func (a *ActiveSettlement) Challenged() bool {
	return !a.Challenger.IsZero()
}

// SettlementParams configures the settlement machine. Periods are seconds
// added to the initiation time to derive the three deadlines.
type SettlementParams struct {
	FillPeriod       int64 `validate:"required,gt=0"`
	OptimisticPeriod int64 `validate:"required,gt=0"`
	ChallengePeriod  int64 `validate:"required,gt=0"`

	// Collateral demanded from the origin filler at initiate.
	CollateralToken  util.EthereumAddress `validate:"required"`
	CollateralAmount *big.Int             `validate:"required"`

	// Bond demanded from a challenger.
	ChallengeBondAmount *big.Int `validate:"required"`

	// Oracle allowed to finalize with a delivery attestation.
	Oracle util.EthereumAddress `validate:"required"`
}

func (p *SettlementParams) Validate() error {
	if p.FillPeriod <= 0 {
		return fmt.Errorf("fill period must be positive")
	}
	if p.OptimisticPeriod <= 0 {
		return fmt.Errorf("optimistic period must be positive")
	}
	if p.ChallengePeriod <= 0 {
		return fmt.Errorf("challenge period must be positive")
	}
	if p.CollateralToken.IsZero() {
		return fmt.Errorf("collateral token is required")
	}
	if p.CollateralAmount == nil || p.CollateralAmount.Sign() <= 0 {
		return fmt.Errorf("collateral amount must be positive")
	}
	if p.ChallengeBondAmount == nil || p.ChallengeBondAmount.Sign() <= 0 {
		return fmt.Errorf("challenge bond amount must be positive")
	}
	if p.Oracle.IsZero() {
		return fmt.Errorf("oracle is required")
	}
	return nil
}

// ListSettlementsInput filters a settlement store listing.
type ListSettlementsInput struct {
	Status      *SettlementStatus     // optional status filter
	Offerer     *util.EthereumAddress // optional maker filter
	InitiatedOn *civil.Date           // optional: only settlements opened on this date
	Limit       *int                  // optional limit (default 100, max 1000)
	Offset      *int                  // optional offset for pagination
}

func (l *ListSettlementsInput) Validate() error {
	if l.Status != nil && !l.Status.Valid() {
		return fmt.Errorf("status must be one of: PENDING, CHALLENGED, CANCELLED, SUCCESS")
	}
	if l.Limit != nil {
		if *l.Limit <= 0 {
			return fmt.Errorf("limit must be positive")
		}
		if *l.Limit > 1000 {
			return fmt.Errorf("limit cannot exceed 1000")
		}
	}
	if l.Offset != nil && *l.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}
	return nil
}

func unixToUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
