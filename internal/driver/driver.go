// Package driver runs the engine against a gateway: the live driver
// polls an exchange on a timer, the backtest driver replays historical
// candles through the paper gateway. Both execute engine action batches
// the same way.
package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/engine"
	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/journal"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
	"github.com/rxtech-lab/gridbot/internal/types"
)

// session bundles what both drivers need to execute a batch and apply
// fills.
type session struct {
	engine  *engine.Engine
	gateway gateway.Gateway
	journal *journal.Journal
	metrics *metrics.Metrics
	log     *logger.Logger

	symbol     string
	seenTrades map[string]struct{}
}

func newSession(eng *engine.Engine, gw gateway.Gateway, jrnl *journal.Journal, m *metrics.Metrics, log *logger.Logger, symbol string) *session {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &session{
		engine:     eng,
		gateway:    gw,
		journal:    jrnl,
		metrics:    m,
		log:        log,
		symbol:     symbol,
		seenTrades: make(map[string]struct{}),
	}
}

// applyFills fetches recent executions, deduplicates them by trade id,
// and feeds them to the engine. Exchanges may re-report trades across
// polls; a trade is applied exactly once.
func (s *session) applyFills(ctx context.Context) error {
	fills, err := s.gateway.RecentFills(ctx, s.symbol)
	if err != nil {
		return err
	}

	for _, fill := range fills {
		if _, seen := s.seenTrades[fill.TradeID]; seen {
			continue
		}

		s.seenTrades[fill.TradeID] = struct{}{}

		if err := s.engine.OnFill(fill.OrderID, fill.Price, fill.Quantity); err != nil {
			s.log.Warn("fill not applied",
				zap.String("orderId", fill.OrderID),
				zap.Error(err),
			)

			continue
		}

		if s.journal != nil {
			if err := s.journal.RecordFill(fill); err != nil {
				s.log.Warn("failed to journal fill", zap.Error(err))
			}
		}

		if s.metrics != nil {
			s.metrics.Fills.Inc()
		}
	}

	return nil
}

// executeBatch runs an engine action batch through the gateway. Failed
// placements are reported back to the engine so the book never holds an
// order the exchange refused.
func (s *session) executeBatch(ctx context.Context, batch types.ActionBatch, now time.Time) {
	for _, message := range batch.Messages {
		s.log.Info(message)
	}

	if s.metrics != nil {
		for _, rejection := range batch.Rejections {
			s.metrics.OrderRejections.WithLabelValues(rejection.Reason).Inc()
		}
	}

	for _, orderID := range batch.CancelOrders {
		if err := s.gateway.CancelOrder(ctx, s.symbol, orderID); err != nil {
			s.log.Warn("cancel failed", zap.String("orderId", orderID), zap.Error(err))

			continue
		}

		if s.metrics != nil {
			s.metrics.OrdersCanceled.Inc()
		}
	}

	for _, order := range batch.PlaceOrders {
		if err := s.gateway.PlaceOrder(ctx, order); err != nil {
			s.log.Warn("placement failed",
				zap.String("orderId", order.ID),
				zap.String("side", string(order.Side)),
				zap.Float64("price", order.Price),
				zap.Error(err),
			)

			s.engine.OnOrderRejected(order.ID)

			if s.journal != nil {
				if jerr := s.journal.RecordOrder(now, order, journal.OrderEventRejected); jerr != nil {
					s.log.Warn("failed to journal rejection", zap.Error(jerr))
				}
			}

			if s.metrics != nil {
				s.metrics.OrderRejections.WithLabelValues("gateway_error").Inc()
			}

			continue
		}

		if s.journal != nil {
			if err := s.journal.RecordOrder(now, order, journal.OrderEventPlaced); err != nil {
				s.log.Warn("failed to journal placement", zap.Error(err))
			}
		}

		if s.metrics != nil {
			s.metrics.OrdersPlaced.WithLabelValues(string(order.Side)).Inc()
		}
	}
}

// reconcile compares the engine's active orders against the exchange's
// and drops what the exchange no longer reports. Executions are drained
// first: an order that filled since the last poll is already gone from
// the open set and must not be read as canceled.
func (s *session) reconcile(ctx context.Context) error {
	if err := s.applyFills(ctx); err != nil {
		return err
	}

	open, err := s.gateway.OpenOrders(ctx, s.symbol)
	if err != nil {
		return err
	}

	openIDs := make(map[string]struct{}, len(open))
	for _, order := range open {
		openIDs[order.ID] = struct{}{}
	}

	s.engine.Reconcile(openIDs)

	return nil
}

// recordStatus logs and journals the current engine status.
func (s *session) recordStatus(now time.Time) types.EngineStatus {
	status := s.engine.Status()

	s.log.Info("status",
		zap.Float64("equity", status.Equity),
		zap.Float64("cash", status.Cash),
		zap.Float64("realizedPnl", status.RealizedPnL),
		zap.Float64("drawdown", status.Drawdown),
		zap.String("riskState", string(status.RiskState)),
		zap.Int("activeOrders", status.ActiveOrders),
		zap.Int("positions", status.Positions),
	)

	if s.journal != nil {
		if err := s.journal.RecordEquity(now, status); err != nil {
			s.log.Warn("failed to journal equity", zap.Error(err))
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveStatus(status)
	}

	return status
}
