// Package decay holds the pure amount-interpolation math shared by every
// auction variant. No state, no logging; callers own all validation of
// where the numbers came from.
package decay

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
)

// ErrEndBeforeStart is returned when a decay window ends before it starts.
var ErrEndBeforeStart = errors.New("decay end bound precedes start bound")

// Linear interpolates an amount across a bound window:
//
//   - before or at the start bound the start amount holds,
//   - at or past the end bound (or when the amounts are equal) the end
//     amount holds,
//   - in between, the moved delta is |start-end| * elapsed / duration with
//     the division floored, then applied toward the end amount.
//
// Flooring the delta, not the result, makes rounding land on the maker's
// side in both decay directions: a shrinking output stays a wei higher, a
// growing input stays a wei lower.
func Linear(startAmount, endAmount *big.Int, startBound, endBound, currentBound int64) (*big.Int, error) {
	if endBound < startBound {
		return nil, errors.WithStack(ErrEndBeforeStart)
	}
	if currentBound >= endBound || startAmount.Cmp(endAmount) == 0 {
		return new(big.Int).Set(endAmount), nil
	}
	if currentBound <= startBound {
		return new(big.Int).Set(startAmount), nil
	}
	elapsed := new(big.Int).SetInt64(currentBound - startBound)
	duration := new(big.Int).SetInt64(endBound - startBound)
	return interpolate(startAmount, endAmount, elapsed, duration), nil
}

// Curve interpolates along a piecewise-linear curve of absolute amounts at
// block offsets from the start bound. Before the start bound (and before the
// first point begins moving) the start amount holds; past the last point its
// amount holds. Points must be pre-validated: strictly increasing bounds,
// monotonic amounts.
func Curve(startAmount *big.Int, points []types.CurvePoint, startBound, currentBound uint64) *big.Int {
	if len(points) == 0 || currentBound <= startBound {
		return new(big.Int).Set(startAmount)
	}
	delta := currentBound - startBound

	prevBound := uint64(0)
	prevAmount := startAmount
	for _, p := range points {
		if delta < p.BoundDelta {
			elapsed := new(big.Int).SetUint64(delta - prevBound)
			duration := new(big.Int).SetUint64(p.BoundDelta - prevBound)
			return interpolate(prevAmount, p.Amount, elapsed, duration)
		}
		prevBound = p.BoundDelta
		prevAmount = p.Amount
	}
	return new(big.Int).Set(prevAmount)
}

// interpolate moves from start toward end by elapsed/duration of the
// distance, flooring the moved delta. duration must be positive and elapsed
// within (0, duration).
func interpolate(start, end *big.Int, elapsed, duration *big.Int) *big.Int {
	distance := new(big.Int).Sub(start, end)
	down := distance.Sign() > 0
	distance.Abs(distance)

	moved := distance.Mul(distance, elapsed)
	moved.Quo(moved, duration)

	if down {
		return moved.Sub(new(big.Int).Set(start), moved)
	}
	return moved.Add(moved, start)
}
