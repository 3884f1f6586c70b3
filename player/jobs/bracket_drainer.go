// player/jobs/bracket_drainer.go
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	"github.com/Ftotnem/RPS64-SERVICES/shared/models"
)

// Bracket is a full set of paid players popped from the queue together.
type Bracket struct {
	ID      string
	Entries []models.QueueEntry
}

// BracketDrainer forms brackets whenever enough players are queued.
type BracketDrainer struct {
	queue  store.MatchQueue
	size   int
	logger *zap.Logger

	// OnBracket receives every formed bracket. Nil means log only.
	OnBracket func(ctx context.Context, b Bracket)
}

func NewBracketDrainer(queue store.MatchQueue, size int, logger *zap.Logger) *BracketDrainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BracketDrainer{queue: queue, size: size, logger: logger}
}

func (d *BracketDrainer) Name() string { return "bracket-drainer" }

// Run pops full brackets until fewer than size players remain queued.
func (d *BracketDrainer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := d.queue.PopBatch(ctx, d.size)
		if err != nil {
			return fmt.Errorf("failed to drain match queue: %w", err)
		}
		if len(entries) == 0 {
			// Empty also means a full batch was popped but every entry was malformed.
			queued, err := d.queue.Len(ctx)
			if err != nil {
				return fmt.Errorf("failed to read match queue length: %w", err)
			}
			if queued < int64(d.size) {
				return nil
			}
			continue
		}

		b := Bracket{ID: uuid.NewString(), Entries: entries}
		uids := make([]string, len(entries))
		for i, e := range entries {
			uids[i] = e.UID
		}
		d.logger.Info("bracket formed", zap.String("bracket_id", b.ID), zap.Int("players", len(entries)), zap.Strings("uids", uids))
		metrics.BracketsFormed.Inc()
		if d.OnBracket != nil {
			d.OnBracket(ctx, b)
		}
	}
}
