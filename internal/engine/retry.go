package engine

import (
	"context"
	"fmt"

	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/pathset"
)

// Retry re-runs Copy over the ledger's pending records until none remain
// below the attempt cap, or until MaxPasses passes when it is set. onPass is
// called before each pass with the pass number and the number of pending
// entries; onProgress receives every Progress of every pass. Both may be nil.
// It returns the number of passes run.
func (e *Engine) Retry(ctx context.Context, onPass func(pass, n int), onProgress func(Progress)) (int, error) {
	if err := e.Options.validate(); err != nil {
		return 0, err
	}

	passes := 0
	for {
		if err := ctx.Err(); err != nil {
			return passes, err
		}
		if e.Options.MaxPasses > 0 && passes >= e.Options.MaxPasses {
			e.logger().Info("retry pass limit reached", "passes", passes)
			return passes, nil
		}

		pending, err := ledger.Pending(e.Ledger, e.Options.Attempts)
		if err != nil {
			return passes, fmt.Errorf("load pending retries: %w", err)
		}
		if len(pending) == 0 {
			return passes, nil
		}

		passes++
		e.stats().AddPasses(1)
		if onPass != nil {
			onPass(passes, len(pending))
		}
		e.logger().Debug("retry pass", "pass", passes, "pending", len(pending))

		for prog := range e.Copy(ctx, retryPairs(pending)) {
			if onProgress != nil {
				onProgress(prog)
			}
		}
		if err := e.Err(); err != nil {
			return passes, err
		}
	}
}

func retryPairs(recs []ledger.Record) []pathset.Pair {
	pairs := make([]pathset.Pair, len(recs))
	for i, rec := range recs {
		pairs[i] = pathset.Pair{Src: rec.Source, Dst: rec.Destination}
	}
	return pairs
}
