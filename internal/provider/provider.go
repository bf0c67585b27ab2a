// Package provider routes item delivery to one of three engines: a
// filesystem tree walk, a random index sampler, or a sequential index
// cursor. The choice is made once at construction and never re-branched
// per call.
package provider

import (
	"context"
	"errors"

	"mediacarousel/internal/model"
)

// ErrBackendUnavailable reports that an explicitly requested index
// backend could not be opened. It is never masked by a silent fallback.
var ErrBackendUnavailable = errors.New("index backend unavailable")

// Provider is the single contract the router exposes. Next returning
// (nil, nil) means "no item right now" and is a normal outcome.
type Provider interface {
	Initialize(ctx context.Context) error
	Next(ctx context.Context) (*model.MediaItem, error)
	Close() error
}
