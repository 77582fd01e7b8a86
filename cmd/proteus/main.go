package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/proteus-sim/proteus/internal/config"
	"github.com/proteus-sim/proteus/internal/domain"
	"github.com/proteus-sim/proteus/internal/handler"
	"github.com/proteus-sim/proteus/internal/ledger"
	"github.com/proteus-sim/proteus/internal/sim"
)

func main() {
	serve := flag.Bool("serve", false, "Serve the inspector HTTP API over the finished run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	scenario, err := config.LoadScenario(cfg.ScenarioPath)
	if err != nil {
		logger.Error("failed to load scenario", slog.String("error", err.Error()))
		os.Exit(1)
	}

	params := sim.Params{
		Seed:       scenario.Seed,
		Mechanism:  scenario.Mechanism.Name,
		Convention: ledger.Convention(scenario.PnLConvention),
		Latency: sim.ConstantLatency{
			SubmissionMS: scenario.Latency.SubmissionMS,
			FillMS:       scenario.Latency.FillMS,
		},
		Accounts: accountSpecs(scenario),
	}

	// One fully inspectable run on the scenario's own seed.
	run, err := sim.NewRun(params, logger)
	if err != nil {
		logger.Error("failed to initialize run", slog.String("error", err.Error()))
		os.Exit(1)
	}
	driver := noiseDriver(scenario)
	if err := driver(0, run); err != nil {
		logger.Error("driver failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := run.Drive(); err != nil {
		logger.Error("run aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := run.VerifyReplay(); err != nil {
		logger.Error("replay verification failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	digest, err := run.LogDigest()
	if err != nil {
		logger.Error("digest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("run complete",
		slog.String("scenario", scenario.ScenarioID),
		slog.Uint64("seed", scenario.Seed),
		slog.Int("events", run.Log().Len()),
		slog.Int("fills", run.Ledger().ProcessedFills()),
		slog.String("log_digest", digest),
	)

	// Monte Carlo repetitions, one independent run each.
	if scenario.Repetitions > 1 {
		results := sim.RunExperiment(params, scenario.Repetitions, driver, logger)
		for _, res := range results {
			if res.Err != nil {
				logger.Error("repetition failed",
					slog.Int("repetition", res.Repetition),
					slog.String("error", res.Err.Error()))
				os.Exit(1)
			}
			logger.Info("repetition complete",
				slog.Int("repetition", res.Repetition),
				slog.Uint64("seed", res.Seed),
				slog.Int("fills", res.Fills),
				slog.String("log_digest", res.LogDigest),
			)
		}
	}

	if !*serve {
		return
	}

	router := handler.NewRouter(run, logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("inspector starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("inspector error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("inspector shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("inspector stopped")
}

func accountSpecs(scenario *config.Scenario) []ledger.AccountSpec {
	specs := make([]ledger.AccountSpec, 0, len(scenario.Accounts))
	for _, a := range scenario.Accounts {
		specs = append(specs, ledger.AccountSpec{
			Owner:     a.Owner,
			Cash:      a.Cash,
			Inventory: a.Inventory,
		})
	}
	return specs
}

// noiseDriver fills a run with random limit orders drawn from the
// run's own "agents.noise" stream: two owners quote around a fixed
// mid so some orders cross and fill. Agent policy proper lives outside
// the core; this stands in for it so the binary exercises a full run.
func noiseDriver(scenario *config.Scenario) sim.Driver {
	return func(rep int, run *sim.Run) error {
		stream, err := run.Streams().Stream("agents.noise")
		if err != nil {
			return err
		}

		owners := []string{"noise-1", "noise-2"}
		for _, a := range scenario.Accounts {
			owners = append(owners, a.Owner)
		}

		const mid = 100
		for i := int64(0); i < scenario.DurationMS; i++ {
			side := domain.SideBuy
			if stream.IntN(2) == 1 {
				side = domain.SideSell
			}
			intent := domain.OrderIntent{
				Owner:    owners[stream.IntN(len(owners))],
				Side:     side,
				Price:    mid + int64(stream.IntN(11)) - 5,
				Quantity: int64(stream.IntN(10)) + 1,
				TIF:      domain.TIFGoodTillCancel,
			}
			if _, err := run.Submit(intent); err != nil {
				return err
			}
		}
		return nil
	}
}
