package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/wager-engine/pkg/logger"
)

// Config collects the tunables for one engine instance. The zero value is not
// usable; construct with DefaultConfig and override fields as needed.
type Config struct {
	Edge      EdgeConfig      `json:"edge"`
	Generator GeneratorConfig `json:"generator"`
	Scorer    ScorerConfig    `json:"scorer"`
	Hedge     HedgeConfig     `json:"hedge"`
	Workers   int             `json:"workers"`
	BatchSize int             `json:"batch_size"`
}

// DefaultConfig sizes the worker pool to the machine.
func DefaultConfig() Config {
	return Config{
		Edge:      DefaultEdgeConfig(),
		Generator: DefaultGeneratorConfig(),
		Scorer:    DefaultScorerConfig(),
		Hedge:     DefaultHedgeConfig(),
		Workers:   runtime.NumCPU(),
		BatchSize: 256,
	}
}

// Request is one optimization run over a snapshot of a wager pool. The engine
// never mutates the pool; everything derived lives in the returned Result.
type Request struct {
	Pool     []Wager `json:"pool"`
	Bankroll float64 `json:"bankroll"`
	Profile  string  `json:"profile"`

	// RunID lets callers pre-assign the run identifier, so progress
	// subscribers can attach before the run starts. Left empty, the engine
	// assigns one.
	RunID string `json:"run_id,omitempty"`

	// OnProgress, when set, is called between scoring batches with the
	// number of combinations scored so far and the total. Calls arrive from
	// the coordinating goroutine only.
	OnProgress func(done, total int) `json:"-"`
}

// Engine runs the full pipeline: validate, screen for value, estimate
// correlations, enumerate and score combinations, detect hedges, and rank the
// survivors. An Engine is stateless between runs and safe for concurrent use;
// all per-run state lives on the stack of Run.
type Engine struct {
	cfg       Config
	estimator PairEstimator
	log       *logrus.Entry
}

// New creates an engine with the default heuristic correlation estimator.
func New(cfg Config) *Engine {
	return NewWithEstimator(cfg, NewHeuristicEstimator())
}

// NewWithEstimator creates an engine with a caller-supplied estimator, for
// callers that score dependence from historical data instead of heuristics.
func NewWithEstimator(cfg Config, estimator PairEstimator) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 256
	}
	return &Engine{
		cfg:       cfg,
		estimator: estimator,
		log:       logger.WithService("engine"),
	}
}

// Run executes one optimization over the request's pool. Malformed legs are
// skipped and recorded, never fatal; a pool with fewer than two usable legs
// is. Cancellation is honored between scoring batches.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	profile, err := ProfileByName(req.Profile)
	if err != nil {
		return nil, err
	}

	log := logger.WithRunContext(runID, profile.Name)
	log.WithField("pool_size", len(req.Pool)).Info("Starting optimization run")

	valid, rejected := e.screenPool(req.Pool)
	if len(valid) < 2 {
		return nil, fmt.Errorf("%w: %d usable legs after validation, need at least 2",
			ErrPoolTooSmall, len(valid))
	}

	// Hedge structures come from posted prices alone, so the detector sees
	// the whole validated pool, including legs with no modeled edge.
	hedges := NewHedgeDetector(e.cfg.Hedge).Detect(valid)

	value := e.valueLegs(valid, profile, req.Bankroll)
	result := &Result{
		RunID:    runID,
		Profile:  profile.Name,
		Hedges:   hedges,
		Rejected: rejected,
	}

	if len(value) < 2 {
		result.Reason = fmt.Sprintf("only %d of %d legs cleared the %.0f%% edge screen, need at least 2",
			len(value), len(valid), profile.MinEdge*100)
		result.Summary = summarize(nil, hedges)
		result.ElapsedMS = time.Since(started).Milliseconds()
		return result, nil
	}

	table := BuildCorrelationTable(value, e.estimator)

	genCfg := e.cfg.Generator
	if profile.MaxLegs < genCfg.MaxLegs {
		genCfg.MaxLegs = profile.MaxLegs
	}
	genCfg.CorrelationCeiling = profile.MaxCorrelation

	combos := GenerateCombinations(len(value), table, genCfg)
	log.WithFields(logrus.Fields{
		"value_legs":   len(value),
		"combinations": len(combos),
		"hedges":       len(hedges),
	}).Info("Pool screened, scoring combinations")

	scored, err := e.scoreAll(ctx, combos, value, table, req)
	if err != nil {
		return nil, err
	}

	ranked, reason := FilterAndRank(scored, profile, req.Bankroll)

	result.Candidates = ranked
	result.Correlations = table.Reportable(ReportableCorrelation)
	result.Summary = summarize(ranked, hedges)
	result.Reason = reason
	result.ElapsedMS = time.Since(started).Milliseconds()

	log.WithFields(logrus.Fields{
		"candidates": len(ranked),
		"elapsed_ms": result.ElapsedMS,
	}).Info("Optimization run complete")

	return result, nil
}

// screenPool drops malformed legs, recording why each was rejected.
func (e *Engine) screenPool(pool []Wager) ([]Wager, []RejectedLeg) {
	valid := make([]Wager, 0, len(pool))
	var rejected []RejectedLeg

	for i, w := range pool {
		if err := w.Validate(); err != nil {
			rejected = append(rejected, RejectedLeg{Index: i, Reason: err.Error()})
			e.log.WithField("leg_index", i).WithError(err).Warn("Skipping malformed leg")
			continue
		}
		valid = append(valid, w)
	}

	return valid, rejected
}

// valueLegs keeps legs whose edge clears the profile minimum, sorted by edge
// descending so combination enumeration order, and with it every downstream
// tiebreak, is deterministic for a given pool.
func (e *Engine) valueLegs(pool []Wager, profile StrategyProfile, bankroll float64) []Wager {
	type edged struct {
		wager Wager
		edge  float64
	}

	cfg := e.cfg.Edge
	cfg.MinEdge = profile.MinEdge

	kept := make([]edged, 0, len(pool))
	for _, w := range pool {
		eval, err := EvaluateLeg(w, bankroll, cfg)
		if err != nil || !eval.IsValue {
			continue
		}
		kept = append(kept, edged{wager: w, edge: eval.Edge})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].edge != kept[j].edge {
			return kept[i].edge > kept[j].edge
		}
		return kept[i].wager.Key() < kept[j].wager.Key()
	})

	value := make([]Wager, len(kept))
	for i, k := range kept {
		value[i] = k.wager
	}
	return value
}

// scoreAll prices every combination through a fixed worker pool. Work is
// dispatched in batches; the coordinator checks for cancellation before each
// batch, so a cancelled context stops the run at the next batch boundary
// rather than mid-price.
func (e *Engine) scoreAll(ctx context.Context, combos [][]int, pool []Wager, table *CorrelationTable, req Request) ([]ParlayCandidate, error) {
	if len(combos) == 0 {
		return nil, nil
	}

	scorer := NewScorer(pool, table, e.cfg.Scorer)

	type batch struct {
		offset, length int
	}
	type batchResult struct {
		offset     int
		candidates []ParlayCandidate
	}

	numBatches := (len(combos) + e.cfg.BatchSize - 1) / e.cfg.BatchSize

	// Both channels hold every batch, so neither workers nor the coordinator
	// ever block on a send and a cancelled run cannot deadlock mid-drain.
	jobs := make(chan batch, numBatches)
	results := make(chan batchResult, numBatches)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for w := 0; w < e.cfg.Workers; w++ {
		go func() {
			for b := range jobs {
				// Cancellation is observed at batch boundaries; an
				// in-flight batch always finishes.
				if workerCtx.Err() != nil {
					results <- batchResult{offset: b.offset}
					continue
				}

				out := make([]ParlayCandidate, 0, b.length)
				for _, combo := range combos[b.offset : b.offset+b.length] {
					candidate, err := scorer.Score(combo, req.Bankroll)
					if err != nil {
						// Generator output is structurally valid, so a
						// failure here means a duplicate market position
						// slipped into the pool. Drop the combination.
						e.log.WithError(err).Debug("Dropping unscorable combination")
						continue
					}
					out = append(out, *candidate)
				}
				results <- batchResult{offset: b.offset, candidates: out}
			}
		}()
	}

	for offset := 0; offset < len(combos); offset += e.cfg.BatchSize {
		length := e.cfg.BatchSize
		if offset+length > len(combos) {
			length = len(combos) - offset
		}
		jobs <- batch{offset: offset, length: length}
	}
	close(jobs)

	byOffset := make(map[int][]ParlayCandidate, numBatches)
	done := 0
	for i := 0; i < numBatches; i++ {
		select {
		case res := <-results:
			byOffset[res.offset] = res.candidates
			done += len(res.candidates)
			if req.OnProgress != nil {
				req.OnProgress(done, len(combos))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Reassemble in dispatch order so output is independent of worker timing.
	offsets := make([]int, 0, len(byOffset))
	for off := range byOffset {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	candidates := make([]ParlayCandidate, 0, len(combos))
	for _, off := range offsets {
		candidates = append(candidates, byOffset[off]...)
	}
	return candidates, nil
}

// summarize computes the portfolio view over the ranked candidates.
func summarize(candidates []ParlayCandidate, hedges []HedgeStructure) Summary {
	summary := Summary{
		CandidateCount: len(candidates),
		HedgeCount:     len(hedges),
		SportCounts:    make(map[string]int),
	}

	riskTotal := 0.0
	for _, c := range candidates {
		summary.TotalExpectedValue += c.ExpectedValue
		summary.TotalStake += c.SuggestedStake
		riskTotal += c.Risk.Overall
		for _, leg := range c.Legs {
			summary.SportCounts[leg.Sport]++
		}
	}
	if len(candidates) > 0 {
		summary.MeanRisk = riskTotal / float64(len(candidates))
	}

	return summary
}
