package adapters

// Result holds the values produced by one stage of the auction alongside the errors which
// explain anything it could not produce. A Result is never discarded because it carries errors.
type Result[T any] struct {
	Values []T
	Errors []error
}

// NewResult wraps values and errors without copying either slice.
func NewResult[T any](values []T, errs []error) Result[T] {
	return Result[T]{Values: values, Errors: errs}
}

// EmptyWithError returns a Result with no values and a single error.
func EmptyWithError[T any](err error) Result[T] {
	return Result[T]{Errors: []error{err}}
}

// Merge returns a new Result with r's values and errors followed by other's.
func (r Result[T]) Merge(other Result[T]) Result[T] {
	merged := Result[T]{
		Values: make([]T, 0, len(r.Values)+len(other.Values)),
		Errors: make([]error, 0, len(r.Errors)+len(other.Errors)),
	}
	merged.Values = append(append(merged.Values, r.Values...), other.Values...)
	merged.Errors = append(append(merged.Errors, r.Errors...), other.Errors...)
	return merged
}

// MergeAll folds results left to right.
func MergeAll[T any](results ...Result[T]) Result[T] {
	var merged Result[T]
	for _, result := range results {
		merged = merged.Merge(result)
	}
	return merged
}
