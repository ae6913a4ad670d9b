package driver

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/datasource"
	"github.com/rxtech-lab/gridbot/internal/engine"
	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/journal"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
	"github.com/rxtech-lab/gridbot/internal/types"
	"github.com/rxtech-lab/gridbot/pkg/errors"
)

// BacktestResult summarizes a completed backtest run.
type BacktestResult struct {
	Candles int                `json:"candles"`
	Fills   int                `json:"fills"`
	Status  types.EngineStatus `json:"status"`
}

// Backtest replays candles from a data source through the paper gateway.
// Each candle first matches resting orders, then the resulting fills are
// applied, then the engine steps on the candle's tick.
type Backtest struct {
	cfg          config.Config
	paper        *gateway.PaperGateway
	source       *datasource.CandleSource
	session      *session
	showProgress bool
}

func NewBacktest(cfg config.Config, eng *engine.Engine, source *datasource.CandleSource, jrnl *journal.Journal, m *metrics.Metrics, log *logger.Logger) *Backtest {
	paper := gateway.NewPaperGateway()

	return &Backtest{
		cfg:          cfg,
		paper:        paper,
		source:       source,
		session:      newSession(eng, paper, jrnl, m, log, cfg.Runtime.Symbol),
		showProgress: false,
	}
}

// ShowProgress enables the terminal progress bar.
func (b *Backtest) ShowProgress() {
	b.showProgress = true
}

// Run replays the whole data source and returns the final result.
func (b *Backtest) Run(ctx context.Context) (BacktestResult, error) {
	s := b.session

	count, err := b.source.Count(optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return BacktestResult{}, err
	}

	if count == 0 {
		return BacktestResult{}, errors.New(errors.ErrCodeDataNotFound, "data source contains no candles")
	}

	s.log.Info("backtest starting",
		zap.String("symbol", b.cfg.Runtime.Symbol),
		zap.Int("candles", count),
	)

	var bar *progressbar.ProgressBar
	if b.showProgress {
		bar = progressbar.Default(int64(count), "backtest")
	}

	result := BacktestResult{}
	cycle := 0

	for candle, err := range b.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			return result, err
		}

		if ctx.Err() != nil {
			return result, errors.Wrap(errors.ErrCodeDriverRunFailed, "backtest canceled", ctx.Err())
		}

		cycle++

		b.paper.SetCandle(candle)

		if err := s.applyFills(ctx); err != nil {
			return result, err
		}

		batch, err := s.engine.Step(candle.Tick(b.cfg.Runtime.Symbol))
		if err != nil {
			return result, err
		}

		s.executeBatch(ctx, batch, candle.Time)

		if b.cfg.Runtime.ReconcileEvery > 0 && cycle%b.cfg.Runtime.ReconcileEvery == 0 {
			if err := s.reconcile(ctx); err != nil {
				return result, err
			}
		}

		if s.journal != nil {
			if err := s.journal.RecordEquity(candle.Time, s.engine.Status()); err != nil {
				s.log.Warn("failed to journal equity", zap.Error(err))
			}
		}

		result.Candles++

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	// Drain fills produced by the final candle before reading the result.
	if err := s.applyFills(ctx); err != nil {
		return result, err
	}

	result.Fills = len(s.seenTrades)
	result.Status = s.recordStatus(time.Now())

	return result, nil
}
