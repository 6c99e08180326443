package index

import (
	"context"
	"fmt"

	"github.com/timmy/mygoreply/internal/embedding"
	"github.com/timmy/mygoreply/internal/logger"
)

// Build embeds texts in batches and adds them in order, so position i of the
// index is texts[i].
// Parameters:
//   - ctx: cancels between batches.
//   - e: embedding collaborator; its Dimensions fixes the index dimension.
//   - texts: one text per corpus position.
//   - batchSize: texts per embedding request, at least 1.
//   - progress: optional callback with (done, total) after each batch.
func Build(ctx context.Context, e embedding.Embedder, texts []string, batchSize int, progress func(done, total int)) (*Flat, error) {
	f, err := NewFlat(e.Dimensions(), e.Model())
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed texts %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
		}
		for i, v := range vecs {
			if _, err := f.Add(v); err != nil {
				return nil, fmt.Errorf("text %d: %w", start+i, err)
			}
		}

		logger.With(logger.Fields{
			logger.FieldCount: end,
			logger.FieldSize:  len(texts),
		}).Debug(ctx, "Embedded batch %d-%d", start, end-1)
		if progress != nil {
			progress(end, len(texts))
		}
	}
	return f, nil
}
