package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/engine"
	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/journal"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
)

// Live polls the gateway on the configured interval and drives the
// engine one cycle at a time: apply fills, step, execute, and
// periodically reconcile and report status. On shutdown it cancels all
// open orders so nothing keeps trading unattended.
type Live struct {
	cfg     config.Config
	session *session
}

func NewLive(cfg config.Config, eng *engine.Engine, gw gateway.Gateway, jrnl *journal.Journal, m *metrics.Metrics, log *logger.Logger) *Live {
	return &Live{
		cfg:     cfg,
		session: newSession(eng, gw, jrnl, m, log, cfg.Runtime.Symbol),
	}
}

// Run blocks until the context is canceled.
func (l *Live) Run(ctx context.Context) error {
	s := l.session
	s.log.Info("live driver starting",
		zap.String("symbol", l.cfg.Runtime.Symbol),
		zap.Duration("pollInterval", l.cfg.Runtime.PollInterval),
	)

	ticker := time.NewTicker(l.cfg.Runtime.PollInterval)
	defer ticker.Stop()

	cycle := 0

	for {
		select {
		case <-ctx.Done():
			return l.shutdown()
		case <-ticker.C:
			cycle++
			l.runCycle(ctx, cycle)
		}
	}
}

func (l *Live) runCycle(ctx context.Context, cycle int) {
	s := l.session

	tick, err := s.gateway.Ticker(ctx, l.cfg.Runtime.Symbol)
	if err != nil {
		s.log.Warn("ticker fetch failed, skipping cycle", zap.Error(err))

		return
	}

	if err := s.applyFills(ctx); err != nil {
		s.log.Warn("fill fetch failed", zap.Error(err))
	}

	batch, err := s.engine.Step(tick)
	if err != nil {
		s.log.Error("engine step failed", zap.Error(err))

		return
	}

	s.executeBatch(ctx, batch, tick.Time)

	if l.cfg.Runtime.ReconcileEvery > 0 && cycle%l.cfg.Runtime.ReconcileEvery == 0 {
		if err := s.reconcile(ctx); err != nil {
			s.log.Warn("reconcile failed", zap.Error(err))
		}
	}

	if l.cfg.Runtime.StatusEvery > 0 && cycle%l.cfg.Runtime.StatusEvery == 0 {
		s.recordStatus(tick.Time)
	}
}

// shutdown cancels every open order. It uses a fresh context since the
// run context is already canceled by the time it is called.
func (l *Live) shutdown() error {
	s := l.session
	s.log.Info("live driver stopping, canceling open orders")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.gateway.CancelAllOrders(ctx, l.cfg.Runtime.Symbol); err != nil {
		s.log.Error("failed to cancel open orders on shutdown", zap.Error(err))

		return err
	}

	s.recordStatus(time.Now())

	return nil
}
