package models

import "errors"

// Failure taxonomy. Every component wraps one of these sentinels with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is while
// still seeing which stage and dependency failed.
var (
	// ErrMalformedSource marks bad input data (e.g. non-monotonic transcript
	// timestamps). Reported per source; an index build continues past it.
	ErrMalformedSource = errors.New("malformed source")

	// ErrEmbeddingUnavailable marks an unreachable embedding dependency or
	// malformed embedding output (wrong dimensionality, NaN components).
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrRetrievalUnavailable marks an unreachable search store. Never
	// conflated with an empty result set.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationUnavailable marks a failed or timed-out generation call.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrTimeout marks a query that exceeded its latency budget.
	ErrTimeout = errors.New("query timed out")

	// ErrNoRelevantResults is the distinguished outcome when fusion leaves
	// zero candidates at or above the relevance threshold. Deliberately not
	// softened by an unfiltered fallback.
	ErrNoRelevantResults = errors.New("no relevant results")

	// ErrEmptyQuestion marks an empty or whitespace-only question, rejected
	// before any retrieval.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)
