package quality

import "time"

// Config holds the quality gate thresholds and limits. It is immutable
// once constructed and injected wherever a threshold is needed, so tests
// can vary values without touching process-wide state.
type Config struct {
	// PassThreshold: final scores at or above this get "pass".
	PassThreshold float64
	// DiscardThreshold: final scores below this get "reject" and are
	// discarded. Scores in [DiscardThreshold, PassThreshold) get "revise".
	DiscardThreshold float64
	// DefaultSemanticScore is substituted when the semantic evaluator
	// fails or returns an unparseable value.
	DefaultSemanticScore float64

	MaxStemLength int
	MinChoices    int
	MaxChoices    int

	// EvalTimeout bounds a single semantic evaluation call.
	EvalTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PassThreshold:        0.85,
		DiscardThreshold:     0.70,
		DefaultSemanticScore: 0.5,
		MaxStemLength:        250,
		MinChoices:           4,
		MaxChoices:           5,
		EvalTimeout:          30 * time.Second,
	}
}
