package engine

import (
	"github.com/rxtech-lab/gridbot/internal/types"
)

// riskGuard maps equity drawdown onto the three trading states. The
// state is recomputed fresh on every evaluation from the drawdown alone;
// there is no cooldown on re-entering Normal once drawdown recovers.
// The previous state is kept only to detect the transition into Halted,
// which triggers liquidation exactly once.
type riskGuard struct {
	pauseFrac float64
	killFrac  float64
	state     types.RiskState
}

func newRiskGuard(pauseFrac, killFrac float64) *riskGuard {
	return &riskGuard{
		pauseFrac: pauseFrac,
		killFrac:  killFrac,
		state:     types.RiskStateNormal,
	}
}

// evaluate applies the current drawdown and returns the resulting state
// along with whether this call is the transition into Halted.
func (r *riskGuard) evaluate(drawdown float64) (types.RiskState, bool) {
	prev := r.state

	switch {
	case drawdown > r.killFrac:
		r.state = types.RiskStateHalted
	case drawdown > r.pauseFrac:
		r.state = types.RiskStatePaused
	default:
		r.state = types.RiskStateNormal
	}

	return r.state, r.state == types.RiskStateHalted && prev != types.RiskStateHalted
}

func (r *riskGuard) restore(state types.RiskState) {
	r.state = state
}
