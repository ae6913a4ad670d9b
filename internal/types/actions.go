package types

// ActionBatch is what a single engine step asks the execution layer to do.
// The engine never talks to an exchange itself; the driver executes the
// batch through the gateway.
type ActionBatch struct {
	// PlaceOrders are new orders to submit, in priority order. During a
	// halt transition this includes market sell orders liquidating every
	// open position.
	PlaceOrders []Order `yaml:"place_orders" json:"place_orders"`
	// CancelOrders are ids of active orders to cancel.
	CancelOrders []string `yaml:"cancel_orders" json:"cancel_orders"`
	// Messages are human-readable diagnostics produced during the step.
	Messages []string `yaml:"messages" json:"messages"`
	// Rejections are the admission-control refusals recorded during the
	// step. Nothing was mutated for a rejected candidate; they are
	// surfaced for diagnostics and metrics.
	Rejections []Reason `yaml:"rejections,omitempty" json:"rejections,omitempty"`
}

// Empty reports whether the batch contains no orders to place or cancel.
func (b ActionBatch) Empty() bool {
	return len(b.PlaceOrders) == 0 && len(b.CancelOrders) == 0
}
