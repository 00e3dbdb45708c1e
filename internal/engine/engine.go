package engine

import (
	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/ir"
)

// Engine runs one adaptive mutation cycle per call:
// Classify → Generate → Drift → gate → Apply.
//
// An Engine holds configuration and injected collaborators only; it keeps
// no per-organism state and there is no shared instance. Construct one per
// host component with New.
//
// Thread-safety model:
//   - Cycle(): the injected RandSource is not synchronized, so one Engine
//     must be driven from one goroutine at a time
//   - Evaluate(): pure, safe from any goroutine
//   - The organism passed to Cycle is exclusively owned by the call; hosts
//     running cycles concurrently against one persisted organism serialize
//     them (see store.CommitCycle)
type Engine struct {
	thresholds Thresholds
	rand       RandSource
	clock      Clock
	logger     *zap.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithThresholds replaces the default scoring and gating constants.
func WithThresholds(th Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = th
	}
}

// WithRand injects the random source used for stochastic mutation selection.
// Use WithRand(NewSeededRand(seed)) for reproducible runs.
func WithRand(r RandSource) Option {
	return func(e *Engine) {
		e.rand = r
	}
}

// WithClock injects the time source for recency and audit timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the structured logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
//
// Defaults: DefaultThresholds(), SystemClock, a PCG source seeded with 1,
// and a no-op logger.
func New(opts ...Option) *Engine {
	e := &Engine{
		thresholds: DefaultThresholds(),
		rand:       NewSeededRand(1),
		clock:      SystemClock{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the engine's constants.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// CycleResult is everything one cycle produced.
type CycleResult struct {
	Classification Classification
	Proposed       []ir.Mutation  // generated candidates, in generation order
	Vector         ir.DriftVector // drift of Proposed
	Applied        bool           // false when the drift gate rejected the batch
	Mutations      []ir.Mutation  // mutations actually applied (empty if !Applied)
}

// Cycle runs the full pipeline against org.
//
// On INVALID_INPUT or PATH_CONFLICT the error is returned and org is left
// untouched. A batch below the drift threshold is not an error: Applied is
// false and org is untouched.
func (e *Engine) Cycle(org *ir.Organism, patterns []ir.UsagePattern, fb ir.EcosystemFeedback) (CycleResult, error) {
	now := e.clock.Now()
	log := e.logger.With(zap.Int64("generation", org.Generation))

	class, err := Classify(patterns, now, e.thresholds)
	if err != nil {
		log.Warn("classification failed", zap.Error(err))
		return CycleResult{}, err
	}
	log.Debug("patterns classified",
		zap.Int("patterns", len(patterns)),
		zap.Int("dominant", len(class.Dominant)),
		zap.Int("recessive", len(class.Recessive)),
		zap.Int("emerging", len(class.Emerging)))

	proposed, err := Generate(class, fb, e.rand, e.thresholds)
	if err != nil {
		log.Warn("mutation generation failed", zap.Error(err))
		return CycleResult{}, err
	}

	vec, err := Drift(proposed)
	if err != nil {
		return CycleResult{}, err
	}
	log.Debug("drift computed",
		zap.Int("proposed", len(proposed)),
		zap.Float64("magnitude", vec.Magnitude),
		zap.Float64("threshold", e.thresholds.DriftThreshold))

	res, err := Apply(org, proposed, vec, now, e.thresholds)
	if err != nil {
		log.Warn("mutation batch rejected", zap.Error(err))
		return CycleResult{}, err
	}

	if res.Applied {
		log.Info("mutation batch applied",
			zap.Int("mutations", len(res.Mutations)),
			zap.Int64("new_generation", org.Generation),
			zap.Float64("magnitude", vec.Magnitude))
	} else {
		log.Debug("drift below threshold; batch skipped")
	}

	return CycleResult{
		Classification: class,
		Proposed:       proposed,
		Vector:         vec,
		Applied:        res.Applied,
		Mutations:      res.Mutations,
	}, nil
}

// Evaluate computes fitness. It does not depend on any prior Cycle.
func (e *Engine) Evaluate(patterns []ir.UsagePattern, fb ir.EcosystemFeedback) (float64, error) {
	return Fitness(patterns, fb)
}
