package insertion

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOutOfRange indicates a request targets an index outside [0, len(seq)].
	ErrOutOfRange = errors.New("insertion: index out of range")
	// ErrMalformedPayload indicates a payload could not be turned into an element.
	ErrMalformedPayload = errors.New("insertion: malformed payload")
)

// Request asks for a new element built from Payload to appear immediately
// before the element that originally sat at Index. Index == len(seq) appends.
type Request[P any] struct {
	Index   int
	Payload P
}

// RequestError reports which request was rejected and why. Kind is always one
// of ErrOutOfRange or ErrMalformedPayload.
type RequestError struct {
	// Position is the request's declaration position in the batch.
	Position int
	Index    int
	Kind     error
	Cause    error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: request %d (index %d): %v", e.Kind, e.Position, e.Index, e.Cause)
	}
	return fmt.Sprintf("%v: request %d (index %d)", e.Kind, e.Position, e.Index)
}

// Unwrap exposes both the error kind and the underlying cause to errors.Is/As.
func (e *RequestError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// InsertAll returns a new sequence holding seq plus one element per request.
// Every request is validated and built before any output exists, so a failure
// never yields a partially inserted sequence. Requests sharing an index keep
// their declaration order in the output. Neither seq nor reqs is modified.
func InsertAll[E, P any](seq []E, reqs []Request[P], build func(P) (E, error)) ([]E, error) {
	if build == nil {
		return nil, fmt.Errorf("insertion: element builder is required")
	}
	built := make([]E, len(reqs))
	for pos, req := range reqs {
		if req.Index < 0 || req.Index > len(seq) {
			return nil, &RequestError{Position: pos, Index: req.Index, Kind: ErrOutOfRange}
		}
	}
	for pos, req := range reqs {
		elem, err := build(req.Payload)
		if err != nil {
			return nil, &RequestError{Position: pos, Index: req.Index, Kind: ErrMalformedPayload, Cause: err}
		}
		built[pos] = elem
	}

	out := make([]E, len(seq)+len(reqs))
	w := len(out)
	src := len(seq)
	for _, pos := range Order(reqs) {
		idx := reqs[pos].Index
		// Originals at or after idx sit behind this request.
		n := src - idx
		copy(out[w-n:w], seq[idx:src])
		w -= n
		src = idx
		w--
		out[w] = built[pos]
	}
	copy(out[:w], seq[:src])
	return out, nil
}

// Order returns the declaration positions of reqs in processing order:
// strictly descending Index, and descending declaration position among equal
// indices. Filling the output from the back in this order leaves same-index
// requests in declaration order.
func Order[P any](reqs []Request[P]) []int {
	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := reqs[order[a]].Index, reqs[order[b]].Index
		if ia != ib {
			return ia > ib
		}
		return order[a] > order[b]
	})
	return order
}
