package archive

import (
	"context"
	"fmt"

	"github.com/Altair29/J-GLOW-sub001/internal/store"
)

// DirectPublisher saves records synchronously.
type DirectPublisher struct {
	Repo store.Repository
}

// Publish saves rec to the repository.
func (p DirectPublisher) Publish(ctx context.Context, rec store.Record) error {
	if err := p.Repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("publish %s: %w", rec.Token, err)
	}
	return nil
}

// Pusher is the producer side of the result stream.
type Pusher interface {
	PushResult(ctx context.Context, rec store.Record) (string, error)
}

// StreamPublisher hands records to the result stream for an Archiver to
// save.
type StreamPublisher struct {
	Stream Pusher
}

// Publish pushes rec onto the result stream.
func (p StreamPublisher) Publish(ctx context.Context, rec store.Record) error {
	if _, err := p.Stream.PushResult(ctx, rec); err != nil {
		return fmt.Errorf("publish %s: %w", rec.Token, err)
	}
	return nil
}
