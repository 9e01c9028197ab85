// Package archive moves finished runs into the record store, either
// directly or through the Redis result stream.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Altair29/J-GLOW-sub001/internal/queue"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"go.uber.org/zap"
)

// Source is the side of the result stream an Archiver reads.
type Source interface {
	EnsureStream(ctx context.Context) error
	ReadResult(ctx context.Context, consumer string) (*queue.ResultMessage, string, error)
	ReadPending(ctx context.Context, consumer, after string) (*queue.ResultMessage, string, error)
	Ack(ctx context.Context, msgID string) error
}

// Archiver consumes the result stream and saves each run.
type Archiver struct {
	source     Source
	repo       store.Repository
	log        *zap.Logger
	consumer   string
	retryDelay time.Duration
}

// New creates an Archiver. A nil logger discards output.
func New(source Source, repo store.Repository, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		source:     source,
		repo:       repo,
		log:        logger,
		consumer:   "archiver_1",
		retryDelay: time.Second,
	}
}

// WithConsumer sets the consumer name used in the archivers group.
func (a *Archiver) WithConsumer(name string) *Archiver {
	a.consumer = name
	return a
}

// ConsumeResults blocks on the stream, archiving results as they arrive,
// until ctx ends. Entries whose save failed stay pending and are retried,
// at most once per retryDelay, together with any this consumer left pending
// before a restart.
func (a *Archiver) ConsumeResults(ctx context.Context) error {
	if err := a.source.EnsureStream(ctx); err != nil {
		return err
	}
	a.log.Info("Archiver started", zap.String("consumer", a.consumer))

	retry := true
	var nextRetry time.Time
	for {
		if retry && !time.Now().Before(nextRetry) {
			retry = a.drainPending(ctx)
			nextRetry = time.Now().Add(a.retryDelay)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		msg, msgID, err := a.source.ReadResult(ctx, a.consumer)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrNoMessages) {
				continue
			}
			if msgID == "" {
				a.log.Warn("Result read failed", zap.Error(err))
				if !a.sleep(ctx) {
					return ctx.Err()
				}
				continue
			}
			a.drop(ctx, msgID, err)
			continue
		}

		if !a.handle(ctx, msg, msgID) && !retry {
			retry = true
			nextRetry = time.Now().Add(a.retryDelay)
		}
	}
}

// drainPending walks the consumer's pending entries once, oldest first. It
// reports whether any entry is still pending afterwards.
func (a *Archiver) drainPending(ctx context.Context) bool {
	failed := false
	after := "0"
	for {
		msg, msgID, err := a.source.ReadPending(ctx, a.consumer, after)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessages) {
				return failed
			}
			if msgID == "" {
				if ctx.Err() == nil {
					a.log.Warn("Pending read failed", zap.Error(err))
				}
				return true
			}
			a.drop(ctx, msgID, err)
			after = msgID
			continue
		}
		after = msgID
		if !a.handle(ctx, msg, msgID) {
			failed = true
		}
	}
}

// handle archives one message and acks it. A failed save leaves the entry
// pending and returns false.
func (a *Archiver) handle(ctx context.Context, msg *queue.ResultMessage, msgID string) bool {
	if err := a.process(ctx, msg); err != nil {
		a.log.Error("Archive failed; left pending",
			zap.String("id", msgID), zap.String("token", msg.Token), zap.Error(err))
		return false
	}
	a.ack(ctx, msgID)
	return true
}

// drop acks an undecodable entry so it does not block the group.
func (a *Archiver) drop(ctx context.Context, msgID string, err error) {
	a.log.Error("Dropping undecodable result", zap.String("id", msgID), zap.Error(err))
	a.ack(ctx, msgID)
}

func (a *Archiver) process(ctx context.Context, msg *queue.ResultMessage) error {
	err := a.repo.Save(ctx, msg.Record)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		a.log.Debug("Result already archived", zap.String("token", msg.Token))
		return nil
	case err != nil:
		return fmt.Errorf("archive %s: %w", msg.Token, err)
	}
	a.log.Info("Result archived",
		zap.String("token", msg.Token),
		zap.String("pack", msg.Pack),
		zap.String("phase", string(msg.Record.Phase)),
		zap.String("rank", msg.Record.Rank()))
	return nil
}

func (a *Archiver) ack(ctx context.Context, msgID string) {
	if err := a.source.Ack(ctx, msgID); err != nil {
		a.log.Warn("Ack failed", zap.String("id", msgID), zap.Error(err))
	}
}

func (a *Archiver) sleep(ctx context.Context) bool {
	t := time.NewTimer(a.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
