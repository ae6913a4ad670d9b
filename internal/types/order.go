package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Rejection reasons returned by order admission control.
const (
	RejectReasonLevelOccupied    string = "level_occupied"
	RejectReasonDuplicateOrder   string = "duplicate_order"
	RejectReasonBelowMinNotional string = "below_min_notional"
	RejectReasonInsufficientCash string = "insufficient_cash"
)

// LevelKey identifies a grid level as an integer count of ticks from zero.
// Using a tick count instead of a formatted price string removes floating
// point equality drift between prices that normalize to the same level.
type LevelKey int64

// Reason carries a machine-readable reason code and a human-readable message.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason"`
	Message string `yaml:"message" json:"message"`
}

// Order is a limit or market order owned by the engine. Identity is ID;
// LevelKey links a grid buy order (and its take-profit sell) to the level
// it targets.
type Order struct {
	ID        string      `yaml:"id" json:"id" validate:"required"`
	Symbol    string      `yaml:"symbol" json:"symbol" validate:"required"`
	Side      Side        `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType   `yaml:"order_type" json:"order_type" validate:"required,oneof=LIMIT MARKET"`
	Price     float64     `yaml:"price" json:"price" validate:"gte=0"`
	Quantity  float64     `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	Status    OrderStatus `yaml:"status" json:"status" validate:"required,oneof=NEW FILLED CANCELED"`
	LevelKey  LevelKey    `yaml:"level_key" json:"level_key"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	// Market orders carry no price; limit orders must have one.
	if o.OrderType == OrderTypeLimit && o.Price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "limit order %s has non-positive price %f", o.ID, o.Price)
	}

	return nil
}
