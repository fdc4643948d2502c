package decay

import (
	"math/big"

	"github.com/driftswap/engine-go/core/types"
)

var mpsDenominator = new(big.Int).SetUint64(types.MpsNeutral)

// EvaluatePriorityCurve returns the scaling multiplier, in milli-basis
// points, for an effective priority fee. The curve implicitly starts at
// (0, neutral); evaluation picks the highest breakpoint at or below the fee
// and interpolates toward the next one, holding the last multiplier once the
// fee passes the final breakpoint. An empty curve is neutral everywhere.
func EvaluatePriorityCurve(curve []types.PriorityCurvePoint, effectiveFee *big.Int) uint64 {
	if len(curve) == 0 {
		return types.MpsNeutral
	}
	// Zero fee sits on the implicit (0, neutral) origin.
	if effectiveFee == nil || effectiveFee.Sign() <= 0 {
		return types.MpsNeutral
	}

	prevThreshold := new(big.Int)
	prevMult := types.MpsNeutral
	for _, p := range curve {
		if effectiveFee.Cmp(p.FeeThreshold) < 0 {
			elapsed := new(big.Int).Sub(effectiveFee, prevThreshold)
			duration := new(big.Int).Sub(p.FeeThreshold, prevThreshold)
			return lerpMultiplier(prevMult, p.MultiplierMps, elapsed, duration)
		}
		prevThreshold = p.FeeThreshold
		prevMult = p.MultiplierMps
	}
	return prevMult
}

// lerpMultiplier interpolates between two multipliers, flooring the moved
// delta like amount interpolation does.
func lerpMultiplier(from, to uint64, elapsed, duration *big.Int) uint64 {
	if from == to {
		return to
	}
	var distance uint64
	down := from > to
	if down {
		distance = from - to
	} else {
		distance = to - from
	}
	moved := new(big.Int).SetUint64(distance)
	moved.Mul(moved, elapsed)
	moved.Quo(moved, duration)
	if down {
		return from - moved.Uint64()
	}
	return from + moved.Uint64()
}

// ScaleInput applies a multiplier to an input amount, flooring so the maker
// pays no more than the exact scale.
func ScaleInput(amount *big.Int, multiplierMps uint64) *big.Int {
	if multiplierMps == types.MpsNeutral {
		return new(big.Int).Set(amount)
	}
	scaled := new(big.Int).SetUint64(multiplierMps)
	scaled.Mul(scaled, amount)
	return scaled.Quo(scaled, mpsDenominator)
}

// ScaleOutput applies a multiplier to an output amount, ceiling so the maker
// receives no less than the exact scale.
func ScaleOutput(amount *big.Int, multiplierMps uint64) *big.Int {
	if multiplierMps == types.MpsNeutral {
		return new(big.Int).Set(amount)
	}
	scaled := new(big.Int).SetUint64(multiplierMps)
	scaled.Mul(scaled, amount)
	scaled.Add(scaled, new(big.Int).Sub(mpsDenominator, big.NewInt(1)))
	return scaled.Quo(scaled, mpsDenominator)
}
