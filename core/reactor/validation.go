package reactor

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

const exclusivityDataLen = 28 // 20-byte filler address + uint64 window end

// ExclusivityData gates an order to one filler until WindowEnd. It travels as
// the order's opaque validation payload.
type ExclusivityData struct {
	ExclusiveFiller util.EthereumAddress
	WindowEnd       int64 // unix seconds; the order opens to everyone at this time
}

// EncodeExclusivityData produces the payload ExclusivityHook expects.
func EncodeExclusivityData(d ExclusivityData) []byte {
	out := make([]byte, exclusivityDataLen)
	copy(out[:20], d.ExclusiveFiller.Bytes())
	binary.LittleEndian.PutUint64(out[20:], uint64(d.WindowEnd))
	return out
}

// DecodeExclusivityData parses an exclusivity payload.
func DecodeExclusivityData(raw []byte) (ExclusivityData, error) {
	if len(raw) != exclusivityDataLen {
		return ExclusivityData{}, errors.Errorf("exclusivity data must be %d bytes, got %d", exclusivityDataLen, len(raw))
	}
	filler, err := util.NewEthereumAddressFromBytes(raw[:20])
	if err != nil {
		return ExclusivityData{}, errors.Wrap(err, "exclusivity filler")
	}
	return ExclusivityData{
		ExclusiveFiller: filler,
		WindowEnd:       int64(binary.LittleEndian.Uint64(raw[20:])),
	}, nil
}

// ExclusivityHook rejects fills from anyone but the named filler while the
// exclusivity window is open. A zero filler or a closed window admits all.
type ExclusivityHook struct{}

var _ types.ValidationHook = ExclusivityHook{}

func (ExclusivityHook) Validate(filler util.EthereumAddress, _ *types.ResolvedOrder, data []byte, fctx types.FillContext) error {
	d, err := DecodeExclusivityData(data)
	if err != nil {
		return err
	}
	if d.ExclusiveFiller.IsZero() || fctx.Timestamp >= d.WindowEnd {
		return nil
	}
	if filler.Common() == d.ExclusiveFiller.Common() {
		return nil
	}
	return errors.Errorf("fill is exclusive to %s until %d", d.ExclusiveFiller.Address(), d.WindowEnd)
}

// HookFunc executes one delegated pre- or post-fill hook.
type HookFunc func(data []byte, resolved *types.ResolvedOrder) error

// HookRegistry dispatches delegated hooks by target identity.
type HookRegistry struct {
	hooks map[string]HookFunc
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]HookFunc)}
}

var _ types.HookRunner = (*HookRegistry)(nil)

// Register installs fn for the given hook identity, replacing any previous
// registration.
func (h *HookRegistry) Register(target util.EthereumAddress, fn HookFunc) {
	h.hooks[target.Address()] = fn
}

func (h *HookRegistry) RunHook(target util.EthereumAddress, data []byte, resolved *types.ResolvedOrder) error {
	fn, ok := h.hooks[target.Address()]
	if !ok {
		return errors.Errorf("no hook registered at %s", target.Address())
	}
	return fn(data, resolved)
}
