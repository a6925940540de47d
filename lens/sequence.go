package lens

import (
	"github.com/teranos/fedlens/errors"
)

type identity struct{}

// Identity returns its source unchanged. It is the neutral element of
// Compose.
func Identity() Lens { return identity{} }

func (identity) Get(source any) (any, error)       { return source, nil }
func (identity) Put(_ any, value any) (any, error) { return value, nil }
func (identity) Create(value any) (any, error)     { return value, nil }
func (identity) Kind() Kind                        { return KindIdentity }
func (identity) String() string                    { return "identity" }

func (identity) Equal(other Lens) bool {
	_, ok := other.(identity)
	return ok
}

type first struct{}

// First focuses on the first element of a sequence.
//
// Get on an empty sequence fails with errors.ErrEmptyPosition. Put
// replaces slot 0, extending an empty sequence. A nil value clears the
// sequence, so the focus reads as absent afterwards instead of exposing
// the next element. Put never mutates the source slice. Create returns
// a one-element sequence.
func First() Lens { return first{} }

func (l first) Get(source any) (any, error) {
	seq, ok := sequence(source)
	if !ok {
		return nil, mismatch(l, "source", "a sequence", source)
	}
	if len(seq) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyPosition, "%s", l)
	}
	return seq[0], nil
}

func (l first) Put(source, value any) (any, error) {
	seq, ok := sequence(source)
	if !ok {
		return nil, mismatch(l, "source", "a sequence", source)
	}
	if value == nil {
		return []any{}, nil
	}
	if len(seq) == 0 {
		return []any{value}, nil
	}
	out := append([]any{}, seq...)
	out[0] = value
	return out, nil
}

func (first) Create(value any) (any, error) {
	if value == nil {
		return []any{}, nil
	}
	return []any{value}, nil
}

func (first) Kind() Kind     { return KindFirst }
func (first) String() string { return "first" }

func (first) Equal(other Lens) bool {
	_, ok := other.(first)
	return ok
}
