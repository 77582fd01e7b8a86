package sim

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/proteus-sim/proteus/internal/ledger"
	"github.com/proteus-sim/proteus/internal/rng"
)

// Driver feeds agent activity into a run before it is driven. Agent
// decision policies live outside this core; the driver is their entry
// point. It may draw only from the run's stream manager so repetitions
// stay reproducible.
type Driver func(repetition int, run *Run) error

// RepetitionResult captures the outcome of one Monte Carlo repetition.
type RepetitionResult struct {
	Repetition int
	Seed       uint64
	LogDigest  string
	Accounts   []ledger.Account
	Fills      int
	Err        error
}

// RunExperiment executes repetitions of a scenario concurrently. Each
// repetition gets its own Run seeded via DeriveRepetitionSeed, with its
// own stream manager and no shared mutable state, so no locking is
// needed beyond the result fan-in.
func RunExperiment(params Params, repetitions int, driver Driver, logger *slog.Logger) []RepetitionResult {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]RepetitionResult, repetitions)

	var wg sync.WaitGroup
	for rep := 0; rep < repetitions; rep++ {
		wg.Add(1)
		go func(rep int) {
			defer wg.Done()
			results[rep] = runRepetition(params, rep, driver, logger)
		}(rep)
	}
	wg.Wait()
	return results
}

func runRepetition(params Params, rep int, driver Driver, logger *slog.Logger) RepetitionResult {
	repParams := params
	repParams.Seed = rng.DeriveRepetitionSeed(params.Seed, rep)
	result := RepetitionResult{Repetition: rep, Seed: repParams.Seed}

	run, err := NewRun(repParams, logger)
	if err != nil {
		result.Err = fmt.Errorf("repetition %d: %w", rep, err)
		return result
	}
	if driver != nil {
		if err := driver(rep, run); err != nil {
			result.Err = fmt.Errorf("repetition %d driver: %w", rep, err)
			return result
		}
	}
	if err := run.Drive(); err != nil {
		result.Err = fmt.Errorf("repetition %d: %w", rep, err)
		return result
	}
	if err := run.VerifyReplay(); err != nil {
		result.Err = fmt.Errorf("repetition %d: %w", rep, err)
		return result
	}

	digest, err := run.LogDigest()
	if err != nil {
		result.Err = fmt.Errorf("repetition %d digest: %w", rep, err)
		return result
	}
	result.LogDigest = digest
	result.Accounts = run.Ledger().SnapshotAll()
	result.Fills = run.Ledger().ProcessedFills()
	return result
}
