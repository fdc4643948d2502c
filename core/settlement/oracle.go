package settlement

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

var (
	// ErrFillerMismatch is returned when the attested filler is not the
	// settlement's destination filler.
	ErrFillerMismatch = errors.New("attested filler is not the settlement's destination filler")

	// ErrOutputMismatch is returned when the attested outputs do not cover
	// what the settlement owes.
	ErrOutputMismatch = errors.New("attested outputs do not cover the settlement's outputs")
)

// OracleRelay ingests destination-domain fill attestations and finalizes the
// matching settlement. It sits between whatever transport delivers oracle
// observations and the settler's oracle-only finalize path, holding the
// oracle identity the settlement machine was configured with.
type OracleRelay struct {
	settler *Settler
	oracle  util.EthereumAddress
	logger  *zap.Logger
}

func NewOracleRelay(settler *Settler, oracle util.EthereumAddress, logger *zap.Logger) (*OracleRelay, error) {
	if settler == nil {
		return nil, errors.New("settler is required")
	}
	if oracle.IsZero() {
		return nil, errors.New("oracle identity is required")
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &OracleRelay{settler: settler, oracle: oracle, logger: logger}, nil
}

// LogSettlementFillInfo records an observed destination fill. The settlement
// finalizes only when the attested filler and outputs cover what the order
// is owed; a short or misdirected fill is rejected without state change.
func (r *OracleRelay) LogSettlementFillInfo(orderHash common.Hash, filler util.EthereumAddress, outputs []types.OutputToken, fillTimestamp, at int64) error {
	record, err := r.settler.Get(orderHash)
	if err != nil {
		return err
	}
	if filler.Common() != record.DestinationFiller.Common() {
		return errors.Wrapf(ErrFillerMismatch, "attested %s, expected %s",
			filler.Address(), record.DestinationFiller.Address())
	}
	if err := coversOutputs(outputs, record.Outputs); err != nil {
		return err
	}
	if err := r.settler.Finalize(orderHash, r.oracle, fillTimestamp, at); err != nil {
		return err
	}
	r.logger.Info("destination fill attested",
		zap.String("order_hash", orderHash.Hex()),
		zap.String("filler", filler.Address()),
		zap.Int64("fill_timestamp", fillTimestamp))
	return nil
}

// coversOutputs checks each owed leg against the attested legs positionally.
// A leg covers when token, recipient, and domain match and the attested
// amount is at least the owed amount; overdelivery still proves the fill.
func coversOutputs(attested, owed []types.OutputToken) error {
	if len(attested) != len(owed) {
		return errors.Wrapf(ErrOutputMismatch, "attested %d legs, owed %d", len(attested), len(owed))
	}
	for i, want := range owed {
		got := attested[i]
		if got.Token.Common() != want.Token.Common() {
			return errors.Wrapf(ErrOutputMismatch, "leg %d token %s, owed %s", i, got.Token.Address(), want.Token.Address())
		}
		if got.Recipient.Common() != want.Recipient.Common() {
			return errors.Wrapf(ErrOutputMismatch, "leg %d recipient %s, owed %s", i, got.Recipient.Address(), want.Recipient.Address())
		}
		if got.ChainID != want.ChainID {
			return errors.Wrapf(ErrOutputMismatch, "leg %d domain %d, owed %d", i, got.ChainID, want.ChainID)
		}
		if got.Amount == nil || got.Amount.Cmp(want.Amount) < 0 {
			return errors.Wrapf(ErrOutputMismatch, "leg %d amount short of %s", i, want.Amount)
		}
	}
	return nil
}
