package scoring

import "time"

// Config holds the scoring thresholds and quality floors. Immutable,
// injected at construction so tests can vary it.
type Config struct {
	// CorrectThreshold: short-answer scores at or above this count as
	// correct.
	CorrectThreshold int
	// PartialCreditMin is the bottom of the partial-credit band
	// [PartialCreditMin, CorrectThreshold).
	PartialCreditMin int
	// FallbackScore is substituted when the grading capability fails,
	// times out, or returns an unparseable value.
	FallbackScore int

	// MinExplanationChars and MinReferenceLinks are guaranteed by
	// construction on every result, padding if the model came up short.
	MinExplanationChars int
	MinReferenceLinks   int

	// ScoreTimeout bounds the short-answer grading call; ExplainTimeout
	// bounds the explanation call.
	ScoreTimeout   time.Duration
	ExplainTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		CorrectThreshold:    80,
		PartialCreditMin:    70,
		FallbackScore:       50,
		MinExplanationChars: 500,
		MinReferenceLinks:   3,
		ScoreTimeout:        30 * time.Second,
		ExplainTimeout:      45 * time.Second,
	}
}
