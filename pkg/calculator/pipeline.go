package calculator

import (
	"context"
	"fmt"
	"io"

	"clv-segments/pkg/clv"
	"clv-segments/pkg/features"
	"clv-segments/pkg/logger"
	"clv-segments/pkg/models"
	"clv-segments/pkg/segment"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Pipeline stages, as reported by StageError.
const (
	StageAggregate = "aggregate"
	StageCLV       = "clv"
	StageSegment   = "segment"
)

// StageError tags a terminal pipeline failure with the stage that produced it and the
// number of customers that had reached that stage.
type StageError struct {
	Stage     string
	Customers int
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage (%d customers): %v", e.Stage, e.Customers, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is everything one run produces.
type Result struct {
	RunID       string
	Rows        []models.CustomerFeatures
	Scaler      *segment.Scaler
	Evaluations []segment.Evaluation
	Assignments []segment.Assignment
	CLV         *clv.Result
	CLVColumn   string // empty when the value estimator did not run
}

// Run executes Aggregator → Estimator → Segmentation Engine over already-cleaned
// transactions. Progress goes to progress; pass io.Discard to silence it.
func Run(ctx context.Context, txs []models.Transaction, cfg models.Config, log *logger.Logger, progress io.Writer) (*Result, error) {
	if log == nil {
		log = logger.Nop()
	}
	if progress == nil {
		progress = io.Discard
	}
	res := &Result{RunID: uuid.NewString()}
	log = log.With("run_id", res.RunID)

	steps := 2 + len(cfg.KCandidates)
	if cfg.EnableCLV {
		steps++
	}
	bar := progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("aggregate"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	// AGGREGATE
	rows, err := features.Aggregate(ctx, txs, features.Options{
		ReferenceDate:    cfg.ReferenceDate,
		ReferenceCountry: cfg.ReferenceCountry,
		Workers:          cfg.Workers,
	})
	if err != nil {
		return nil, &StageError{Stage: StageAggregate, Customers: 0, Err: err}
	}
	res.Rows = rows
	_ = bar.Add(1)
	log.Info("customers aggregated", "transactions", len(txs), "customers", len(rows))

	// CLV
	if cfg.EnableCLV {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageCLV, Customers: len(rows), Err: err}
		}
		bar.Describe("clv")
		est, err := estimate(txs, cfg.HorizonMonths)
		if err != nil {
			return nil, &StageError{Stage: StageCLV, Customers: len(rows), Err: err}
		}
		res.CLV = est
		res.CLVColumn = models.CLVColumn(cfg.HorizonMonths)
		attachCLV(rows, est.Values)
		_ = bar.Add(1)
		log.Info("customer value estimated",
			"column", res.CLVColumn,
			"estimated", len(est.Values),
			"skipped", est.Skipped,
			"r", est.Timing.R, "alpha", est.Timing.Alpha, "a", est.Timing.A, "b", est.Timing.B,
			"p", est.Value.P, "q", est.Value.Q, "v", est.Value.V)
	}

	// SEGMENT
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageSegment, Customers: len(rows), Err: err}
	}
	bar.Describe("segment")
	X, err := segment.Matrix(rows, cfg.ClusterColumns)
	if err != nil {
		return nil, &StageError{Stage: StageSegment, Customers: len(rows), Err: err}
	}
	Z, scaler, err := segment.Standardize(X)
	if err != nil {
		return nil, &StageError{Stage: StageSegment, Customers: len(rows), Err: err}
	}
	res.Scaler = scaler
	opts := segment.Options{Seed: cfg.Seed}

	if len(cfg.KCandidates) > 0 {
		res.Evaluations, err = segment.Evaluate(Z, cfg.KCandidates, opts, func(ev segment.Evaluation) {
			_ = bar.Add(1)
			if cfg.Verbose {
				log.Debug("candidate evaluated", "k", ev.K, "silhouette", ev.Silhouette, "inertia", ev.Inertia)
			}
		})
		if err != nil {
			return nil, &StageError{Stage: StageSegment, Customers: len(rows), Err: err}
		}
	}

	res.Assignments, err = segment.FitAll(Z, cfg.K, opts)
	if err != nil {
		return nil, &StageError{Stage: StageSegment, Customers: len(rows), Err: err}
	}
	for _, a := range res.Assignments {
		if !a.Converged {
			log.Warn("clustering did not converge, labels come from the last iteration", "algorithm", a.Algorithm, "k", cfg.K)
		}
	}
	_ = bar.Add(1)
	log.Info("customers segmented", "k", cfg.K, "columns", len(cfg.ClusterColumns), "algorithms", len(res.Assignments))
	return res, nil
}

func estimate(txs []models.Transaction, horizonMonths int) (*clv.Result, error) {
	summaries, err := clv.Summarize(txs, nil)
	if err != nil {
		return nil, err
	}
	return clv.Estimate(summaries, horizonMonths, clv.FitOptions{})
}

func attachCLV(rows []models.CustomerFeatures, values map[string]float64) {
	for i := range rows {
		if v, ok := values[rows[i].CustomerID]; ok {
			rows[i].CLV = &v
		}
	}
}
