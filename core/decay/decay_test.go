package decay

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/types"
)

func TestLinear(t *testing.T) {
	tests := []struct {
		name    string
		start   int64
		end     int64
		bounds  [3]int64 // startBound, endBound, currentBound
		want    int64
		wantErr error
	}{
		{
			name:   "before window returns start",
			start:  1000, end: 500,
			bounds: [3]int64{100, 200, 50},
			want:   1000,
		},
		{
			name:   "at start bound returns start",
			start:  1000, end: 500,
			bounds: [3]int64{100, 200, 100},
			want:   1000,
		},
		{
			name:   "at end bound returns end",
			start:  1000, end: 500,
			bounds: [3]int64{100, 200, 200},
			want:   500,
		},
		{
			name:   "past end bound returns end",
			start:  1000, end: 500,
			bounds: [3]int64{100, 200, 300},
			want:   500,
		},
		{
			name:   "midpoint decaying down",
			start:  1000, end: 500,
			bounds: [3]int64{100, 200, 150},
			want:   750,
		},
		{
			name:   "midpoint decaying up",
			start:  500, end: 1000,
			bounds: [3]int64{100, 200, 150},
			want:   750,
		},
		{
			name:   "flat amounts return end immediately",
			start:  700, end: 700,
			bounds: [3]int64{100, 200, 50},
			want:   700,
		},
		{
			name:   "rounding favors maker on down decay",
			start:  100, end: 0,
			bounds: [3]int64{0, 3, 1},
			// moved delta floors to 33, amount stays a wei high
			want: 67,
		},
		{
			name:   "rounding favors maker on up decay",
			start:  0, end: 100,
			bounds: [3]int64{0, 3, 1},
			// moved delta floors to 33, amount stays a wei low
			want: 33,
		},
		{
			name:    "end before start rejected",
			start:   1000, end: 500,
			bounds:  [3]int64{200, 100, 150},
			wantErr: ErrEndBeforeStart,
		},
		{
			name:   "zero duration window snaps to end",
			start:  1000, end: 500,
			bounds: [3]int64{100, 100, 100},
			want:   500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Linear(big.NewInt(tt.start), big.NewInt(tt.end), tt.bounds[0], tt.bounds[1], tt.bounds[2])
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64(), "unexpected decayed amount")
		})
	}
}

func TestLinearMonotonic(t *testing.T) {
	start := big.NewInt(1_000_000)
	end := big.NewInt(250_000)

	prev, err := Linear(start, end, 1000, 2000, 999)
	require.NoError(t, err)
	require.Equal(t, start, prev, "before the window the start amount holds")

	for bound := int64(1000); bound <= 2001; bound++ {
		got, err := Linear(start, end, 1000, 2000, bound)
		require.NoError(t, err)
		assert.LessOrEqual(t, got.Cmp(prev), 0, "amount rose at bound %d", bound)
		prev = got
	}
	assert.Equal(t, end, prev, "decay must land exactly on the end amount")
}

func TestLinearDoesNotMutateInputs(t *testing.T) {
	start := big.NewInt(1000)
	end := big.NewInt(500)

	_, err := Linear(start, end, 0, 100, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), start.Int64())
	assert.Equal(t, int64(500), end.Int64())
}

func TestCurve(t *testing.T) {
	start := big.NewInt(1000)
	points := []types.CurvePoint{
		{BoundDelta: 10, Amount: big.NewInt(800)},
		{BoundDelta: 20, Amount: big.NewInt(200)},
	}

	tests := []struct {
		name    string
		current uint64
		want    int64
	}{
		{"before start", 90, 1000},
		{"at start", 100, 1000},
		{"halfway through first segment", 105, 900},
		{"at first point", 110, 800},
		{"halfway through second segment", 115, 500},
		{"at last point", 120, 200},
		{"past last point", 500, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Curve(start, points, 100, tt.current)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestCurveEmptyHoldsStart(t *testing.T) {
	got := Curve(big.NewInt(777), nil, 100, 10_000)
	assert.Equal(t, int64(777), got.Int64())
}
