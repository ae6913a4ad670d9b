package engine

import (
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// Snapshot is the complete serializable engine state. Restoring a
// snapshot into a fresh engine with the same config reproduces the
// engine's behavior exactly.
type Snapshot struct {
	Cash         float64            `yaml:"cash" json:"cash"`
	BaseHoldings float64            `yaml:"base_holdings" json:"base_holdings"`
	RealizedPnL  float64            `yaml:"realized_pnl" json:"realized_pnl"`
	MaxEquity    float64            `yaml:"max_equity" json:"max_equity"`
	LastPrice    float64            `yaml:"last_price" json:"last_price"`
	PriceHistory []float64          `yaml:"price_history" json:"price_history"`
	RiskState    types.RiskState    `yaml:"risk_state" json:"risk_state"`
	Orders       []types.Order      `yaml:"orders" json:"orders"`
	Positions    []SnapshotPosition `yaml:"positions" json:"positions"`
}

// SnapshotPosition is a Position flattened for serialization. The
// optional take-profit order id is carried as a plain string, empty when
// no take-profit is armed; the optional type itself does not survive a
// YAML round trip (an unset value decodes as a present empty one).
type SnapshotPosition struct {
	LevelKey          types.LevelKey `yaml:"level_key" json:"level_key"`
	Quantity          float64        `yaml:"quantity" json:"quantity"`
	BuyPrice          float64        `yaml:"buy_price" json:"buy_price"`
	TakeProfitPrice   float64        `yaml:"take_profit_price" json:"take_profit_price"`
	TakeProfitOrderID string         `yaml:"take_profit_order_id" json:"take_profit_order_id"`
}

// Snapshot captures the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Cash:         e.cash,
		BaseHoldings: e.baseHoldings,
		RealizedPnL:  e.realizedPnL,
		MaxEquity:    e.maxEquity,
		LastPrice:    e.lastPrice,
		PriceHistory: e.vol.History(),
		RiskState:    e.risk.state,
	}

	for _, id := range e.book.orderIDs() {
		snap.Orders = append(snap.Orders, e.book.orders[id])
	}

	for _, pos := range e.book.sortedPositions() {
		snap.Positions = append(snap.Positions, SnapshotPosition{
			LevelKey:          pos.LevelKey,
			Quantity:          pos.Quantity,
			BuyPrice:          pos.BuyPrice,
			TakeProfitPrice:   pos.TakeProfitPrice,
			TakeProfitOrderID: pos.TakeProfitOrderID.TakeOr(""),
		})
	}

	return snap
}

// Restore replaces the engine state with the snapshot's. The config is
// not part of the snapshot; the caller must construct the engine with
// the same config the snapshot was taken under.
func (e *Engine) Restore(snap Snapshot) error {
	if snap.Cash < 0 || snap.BaseHoldings < 0 {
		return errors.Newf(errors.ErrCodeSnapshotRestore,
			"snapshot has negative balances: cash %f, base %f", snap.Cash, snap.BaseHoldings)
	}

	if snap.MaxEquity < 0 {
		return errors.Newf(errors.ErrCodeSnapshotRestore, "snapshot has negative max equity %f", snap.MaxEquity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cash = snap.Cash
	e.baseHoldings = snap.BaseHoldings
	e.realizedPnL = snap.RealizedPnL
	e.maxEquity = snap.MaxEquity
	e.lastPrice = snap.LastPrice
	e.vol.restoreHistory(snap.PriceHistory)
	e.risk.restore(snap.RiskState)

	e.book = newBook()
	for _, o := range snap.Orders {
		e.book.addOrder(o)
	}

	for _, p := range snap.Positions {
		pos := types.Position{
			LevelKey:          p.LevelKey,
			Quantity:          p.Quantity,
			BuyPrice:          p.BuyPrice,
			TakeProfitPrice:   p.TakeProfitPrice,
			TakeProfitOrderID: optional.None[string](),
		}
		if p.TakeProfitOrderID != "" {
			pos.TakeProfitOrderID = optional.Some(p.TakeProfitOrderID)
		}

		e.book.addPosition(&pos)
	}

	return nil
}

// Encode serializes the snapshot to YAML.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSnapshotEncode, "failed to encode snapshot", err)
	}

	return data, nil
}

// DecodeSnapshot parses a YAML snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(errors.ErrCodeSnapshotRestore, "failed to decode snapshot", err)
	}

	return snap, nil
}
