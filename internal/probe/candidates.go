package probe

import (
	"context"
	"fmt"
	"slices"
)

// CandidateSet is an ordered list of alternatives tried strictly in order.
type CandidateSet[T any] struct {
	items []T
}

// NewCandidateSet returns a set holding items in the given order.
func NewCandidateSet[T any](items ...T) CandidateSet[T] {
	return CandidateSet[T]{items: slices.Clone(items)}
}

// Len returns the number of candidates.
func (s CandidateSet[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the candidates.
func (s CandidateSet[T]) Items() []T {
	return slices.Clone(s.items)
}

// ExhaustedError reports that no candidate worked.
type ExhaustedError struct {
	Attempts int
	Last     *Failure // nil only for an empty set
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return "no working candidate: candidate set is empty"
	}
	return fmt.Sprintf("no working candidate after %d attempt(s); last %s failure: %s",
		e.Attempts, e.Last.Kind, e.Last.Diagnostic)
}

// Unwrap exposes the last failure to errors.As.
func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// TryFunc attempts one candidate. A nil Failure and nil error is success.
type TryFunc[T any] func(ctx context.Context, candidate T) (*Failure, error)

// Resolve returns the first candidate for which try succeeds. A non-nil error
// from try stops resolution immediately and is returned unchanged. A canceled
// context ends resolution with ctx.Err(), since a killed probe is not a
// candidate failure.
func (s CandidateSet[T]) Resolve(ctx context.Context, try TryFunc[T]) (T, error) {
	var zero T
	var last *Failure
	for _, c := range s.items {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		f, err := try(ctx, c)
		if err != nil {
			return zero, err
		}
		if f == nil {
			return c, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		last = f
	}
	return zero, &ExhaustedError{Attempts: len(s.items), Last: last}
}
