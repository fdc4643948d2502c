package resolver

//
//import (
//	"math/big"
//
//	"github.com/pkg/errors"
//
//	"github.com/driftswap/engine-go/core/types"
//	"github.com/driftswap/engine-go/core/util"
//)
//
//// exclusivityPremiumBpsDenominator scales premium basis points.
//const exclusivityPremiumBpsDenominator = 10_000
//
//// applyExclusivityPremium raises every output when a filler other than the
//// exclusive one fills during the exclusivity window. Exclusivity is enforced
//// through the validation hook instead; kept here until premium pricing ships.
//func applyExclusivityPremium(resolved *types.ResolvedOrder, exclusiveFiller util.EthereumAddress, premiumBps uint64, filler util.EthereumAddress, now int64, windowEnd int64) error {
//	if exclusiveFiller.IsZero() || now >= windowEnd {
//		return nil
//	}
//	if filler.Common() == exclusiveFiller.Common() {
//		return nil
//	}
//	if premiumBps == 0 {
//		return errors.New("exclusivity window is strict, no premium configured")
//	}
//
//	scale := new(big.Int).SetUint64(exclusivityPremiumBpsDenominator + premiumBps)
//	for i := range resolved.Outputs {
//		amount := new(big.Int).Mul(resolved.Outputs[i].Amount, scale)
//		amount.Add(amount, big.NewInt(exclusivityPremiumBpsDenominator-1))
//		amount.Quo(amount, big.NewInt(exclusivityPremiumBpsDenominator))
//		resolved.Outputs[i].Amount = amount
//	}
//	return nil
//}
//
////func premiumForFiller(o *types.DutchOrder, filler util.EthereumAddress) (uint64, error) {
////	data, err := decodeExclusivityData(o.Info.ValidationData)
////	if err != nil {
////		return 0, errors.WithStack(err)
////	}
////	if data.ExclusiveFiller.Common() == filler.Common() {
////		return 0, nil
////	}
////	return data.PremiumBps, nil
////}
