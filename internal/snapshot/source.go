package snapshot

import (
	"context"
	"errors"

	"github.com/JonMunkholm/taxonomy-import/internal/core"
)

// ErrNotFound is returned when the configured snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Source loads a snapshot of existing entities.
type Source interface {
	Load(ctx context.Context) (core.Snapshot, error)
}

// Static is a Source that always returns the same snapshot.
type Static core.Snapshot

// Load implements Source.
func (s Static) Load(context.Context) (core.Snapshot, error) {
	return core.Snapshot(s), nil
}
