package assistant

import (
	"context"
	"errors"

	"maitre/internal/models/providers"
)

// Source tells which path produced a pipeline value
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// ErrUnusable is reported when the primary path answered with a value the
// usable predicate rejected.
var ErrUnusable = errors.New("model output unusable")

// WithFallback runs primary and returns its value when it succeeds and
// usable accepts it. Otherwise the fallback value is returned together
// with the reason the primary value was discarded. A nil primary always
// takes the fallback with providers.ErrNoProvider.
func WithFallback[T any](
	ctx context.Context,
	primary func(context.Context) (T, error),
	fallback func() T,
	usable func(T) bool,
) (T, Source, error) {
	if primary == nil {
		return fallback(), SourceFallback, providers.ErrNoProvider
	}

	v, err := primary(ctx)
	if err != nil {
		return fallback(), SourceFallback, err
	}
	if usable != nil && !usable(v) {
		return fallback(), SourceFallback, ErrUnusable
	}
	return v, SourceModel, nil
}
