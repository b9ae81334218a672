package transfer

import (
	"context"
	"log/slog"

	"github.com/hupe1980/vecstream/native"
)

// SkipMessage is logged when no index is created for a stream.
const SkipMessage = "skipping index creation, no vectors in segment"

// Trigger invokes builder for res unless nothing was transferred.
//
// A result with a handle but no doc ids (or the reverse) is logged as an
// invariant violation and skipped as well.
func Trigger(ctx context.Context, logger *slog.Logger, builder native.IndexBuilder, bc native.BuildContext, res *Result) (Outcome, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if res == nil || res.Handle.IsZero() || len(res.DocIDs) == 0 {
		if res != nil && res.Validate() != nil {
			logger.WarnContext(ctx, "transfer result violates handle/doc id invariant",
				"segment", bc.Segment,
				"field", bc.Field,
				"handle", res.Handle,
				"docs", len(res.DocIDs),
			)
		}
		logger.InfoContext(ctx, SkipMessage, "segment", bc.Segment, "field", bc.Field)
		return OutcomeSkipped, nil
	}

	if err := builder.BuildIndex(ctx, bc, res.Handle, res.DocIDs, res.Dimension); err != nil {
		return OutcomeSkipped, &BuildError{Handle: res.Handle, Docs: len(res.DocIDs), cause: err}
	}
	return OutcomeBuilt, nil
}
