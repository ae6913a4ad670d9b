package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rxtech-lab/gridbot/internal/config"
	"github.com/rxtech-lab/gridbot/internal/datasource"
	"github.com/rxtech-lab/gridbot/internal/driver"
	"github.com/rxtech-lab/gridbot/internal/engine"
	"github.com/rxtech-lab/gridbot/internal/gateway"
	"github.com/rxtech-lab/gridbot/internal/journal"
	"github.com/rxtech-lab/gridbot/internal/logger"
	"github.com/rxtech-lab/gridbot/internal/metrics"
	"github.com/rxtech-lab/gridbot/internal/server"
	"github.com/urfave/cli/v3"
)

// backtestAction replays historical candles through the engine and
// prints the resulting performance summary.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, lg)
	if err != nil {
		return err
	}

	source, err := datasource.NewCandleSource(":memory:", lg)
	if err != nil {
		return err
	}
	defer source.Close()

	dataPath := cmd.String("data")
	if strings.HasSuffix(dataPath, ".parquet") {
		err = source.InitializeParquet(dataPath)
	} else {
		err = source.InitializeCSV(dataPath)
	}
	if err != nil {
		return err
	}

	jrnl, err := journal.NewJournal(lg)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	bt := driver.NewBacktest(cfg, eng, source, jrnl, metrics.New(), lg)
	if !cmd.Bool("quiet") {
		bt.ShowProgress()
	}

	result, err := bt.Run(ctx)
	if err != nil {
		return err
	}

	if exportDir := cmd.String("export"); exportDir != "" {
		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
		if err := jrnl.Export(exportDir); err != nil {
			return err
		}
		log.Printf("Journal exported to %s", exportDir)
	}

	status := result.Status
	log.Printf("Backtest complete: %d candles, %d fills", result.Candles, result.Fills)
	log.Printf("Final equity %.2f (cash %.2f, holdings %.8f), realized PnL %.2f, max drawdown state %s",
		status.Equity, status.Cash, status.BaseHoldings, status.RealizedPnL, status.RiskState)

	return nil
}

// liveAction runs the bot against the Binance spot API until interrupted.
func liveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	apiKey := cmd.String("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("BINANCE_API_KEY")
	}
	secretKey := cmd.String("secret-key")
	if secretKey == "" {
		secretKey = os.Getenv("BINANCE_SECRET_KEY")
	}
	if apiKey == "" || secretKey == "" {
		return fmt.Errorf("binance credentials required: set --api-key/--secret-key or BINANCE_API_KEY/BINANCE_SECRET_KEY")
	}

	lg, err := logger.NewLogger()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, lg)
	if err != nil {
		return err
	}

	if snapPath := cmd.String("snapshot"); snapPath != "" {
		if data, readErr := os.ReadFile(snapPath); readErr == nil {
			snap, decodeErr := engine.DecodeSnapshot(data)
			if decodeErr != nil {
				return decodeErr
			}
			if restoreErr := eng.Restore(snap); restoreErr != nil {
				return restoreErr
			}
			log.Printf("Restored engine state from %s", snapPath)
		}
	}

	gw := gateway.NewBinanceGateway(gateway.BinanceConfig{
		APIKey:     apiKey,
		SecretKey:  secretKey,
		UseTestnet: cmd.Bool("testnet"),
	}, lg)

	jrnl, err := journal.NewJournalAt(cmd.String("journal"), lg)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	m := metrics.New()

	if cfg.Runtime.Listen != "" {
		srv := server.New(eng, cfg, m, lg)
		if err := srv.Start(cfg.Runtime.Listen); err != nil {
			return err
		}
		defer srv.Stop()
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	live := driver.NewLive(cfg, eng, gw, jrnl, m, lg)
	runErr := live.Run(runCtx)

	if snapPath := cmd.String("snapshot"); snapPath != "" {
		snap := eng.Snapshot()
		data, encodeErr := snap.Encode()
		if encodeErr != nil {
			log.Printf("Failed to encode snapshot: %v", encodeErr)
		} else if writeErr := os.WriteFile(snapPath, data, 0o600); writeErr != nil {
			log.Printf("Failed to write snapshot: %v", writeErr)
		} else {
			log.Printf("Engine state saved to %s", snapPath)
		}
	}

	return runErr
}

// generateAction writes a synthetic candle series for backtesting.
func generateAction(_ context.Context, cmd *cli.Command) error {
	cfg := datasource.SyntheticConfig{
		StartPrice: cmd.Float("price"),
		Drift:      cmd.Float("drift"),
		Volatility: cmd.Float("volatility"),
		Start:      cmd.Timestamp("start"),
		Interval:   cmd.Duration("interval"),
		Count:      int(cmd.Int("count")),
		Seed:       cmd.Int("seed"),
	}

	candles := datasource.GenerateCandles(cfg)

	output := cmd.String("output")
	var err error
	if strings.HasSuffix(output, ".parquet") {
		err = datasource.WriteCandlesParquet(output, candles)
	} else {
		err = datasource.WriteCandlesCSV(output, candles)
	}
	if err != nil {
		return err
	}

	log.Printf("Wrote %d candles to %s", len(candles), filepath.Clean(output))

	return nil
}

// schemaAction prints the JSON schema for the configuration file.
func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.Config{}.SchemaJSON()
	if err != nil {
		return err
	}
	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "gridbot",
		Usage: "Grid trading bot for spot markets",
		Commands: []*cli.Command{
			{
				Name:  "backtest",
				Usage: "Replay historical candles through the grid engine",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML configuration file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to a CSV or Parquet candle file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"e"},
						Usage:   "Directory to export the trade journal as Parquet",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "Disable the progress bar",
					},
				},
				Action: backtestAction,
			},
			{
				Name:  "live",
				Usage: "Trade live against the Binance spot API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML configuration file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "api-key",
						Usage: "Binance API key (or BINANCE_API_KEY env)",
					},
					&cli.StringFlag{
						Name:  "secret-key",
						Usage: "Binance secret key (or BINANCE_SECRET_KEY env)",
					},
					&cli.BoolFlag{
						Name:  "testnet",
						Usage: "Use the Binance spot testnet",
					},
					&cli.StringFlag{
						Name:  "journal",
						Usage: "Path to the DuckDB journal file",
						Value: "gridbot.duckdb",
					},
					&cli.StringFlag{
						Name:  "snapshot",
						Usage: "Path for engine state persistence across restarts",
					},
				},
				Action: liveAction,
			},
			{
				Name:  "generate",
				Usage: "Generate synthetic candle data for backtesting",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output path ending in .csv or .parquet",
						Required: true,
					},
					&cli.FloatFlag{
						Name:  "price",
						Usage: "Starting price",
						Value: 45000,
					},
					&cli.FloatFlag{
						Name:  "drift",
						Usage: "Per-bar expected log return",
						Value: 0,
					},
					&cli.FloatFlag{
						Name:  "volatility",
						Usage: "Per-bar log return standard deviation",
						Value: 0.006,
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "Timestamp of the first candle in `YYYY-MM-DD` format",
						Value: time.Now().AddDate(0, -1, 0),
						Config: cli.TimestampConfig{
							Layouts: []string{"2006-01-02"},
						},
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Bar duration",
						Value: time.Minute,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of candles to generate",
						Value: 10000,
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed for reproducible series",
						Value: 42,
					},
				},
				Action: generateAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the configuration file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
