// Package loader populates the vector collection from embedding block files.
package loader

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/artmeta"
	"github.com/nagomi-art/nagomi/internal/blocks"
	"github.com/nagomi-art/nagomi/internal/collection"
	"github.com/nagomi-art/nagomi/internal/keywordidx"
	"github.com/nagomi-art/nagomi/internal/models"
)

// Loader bulk-loads block files into the vector collection, deriving metadata
// from each path. Loading is resumable: a block whose first id is already in
// the collection is skipped in full, so re-running after an interruption only
// loads what is missing.
type Loader struct {
	collection    collection.Collection
	metadataIndex *keywordidx.MetadataIndex // optional; when set, metadata is also keyword-indexed
	logger        *zap.Logger               // optional
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for per-block progress and skip warnings.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithMetadataIndex also indexes each loaded artwork's metadata for keyword search.
func WithMetadataIndex(idx *keywordidx.MetadataIndex) LoaderOption {
	return func(ld *Loader) { ld.metadataIndex = idx }
}

// New creates a loader writing into coll.
func New(coll collection.Collection, opts ...LoaderOption) *Loader {
	ld := &Loader{collection: coll}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadStats summarizes a load run. IndexCount is the collection count after
// the load, which is what callers report to users.
type LoadStats struct {
	BlocksLoaded  int
	BlocksSkipped int
	RecordsLoaded int
	IndexCount    int
}

// LoadAll discovers block pairs under blocksDir and upserts each unloaded
// block as one batch. Blocks with an unparsable index suffix or a missing
// paths file are skipped and counted, never fatal.
func (ld *Loader) LoadAll(ctx context.Context, blocksDir string) (*LoadStats, error) {
	refs, badNames, err := blocks.Discover(blocksDir)
	if err != nil {
		return nil, err
	}
	stats := &LoadStats{BlocksSkipped: len(badNames)}
	for _, name := range badNames {
		if ld.logger != nil {
			ld.logger.Warn("block file skipped: unparsable index suffix", zap.String("file", name))
		}
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		loaded, count, err := ld.loadBlock(ctx, ref)
		if err != nil {
			if errors.Is(err, blocks.ErrMissingPairedBlock) {
				stats.BlocksSkipped++
				if ld.logger != nil {
					ld.logger.Warn("block skipped: missing paths file", zap.Int("block", ref.Index))
				}
				continue
			}
			return stats, fmt.Errorf("load block %d: %w", ref.Index, err)
		}
		if !loaded {
			stats.BlocksSkipped++
			if ld.logger != nil {
				ld.logger.Debug("block already loaded", zap.Int("block", ref.Index))
			}
			continue
		}
		stats.BlocksLoaded++
		stats.RecordsLoaded += count
		if ld.logger != nil {
			ld.logger.Info("block loaded", zap.Int("block", ref.Index), zap.Int("records", count))
		}
	}

	total, err := ld.collection.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.IndexCount = total
	return stats, nil
}

// loadBlock reads one block and upserts it. Returns loaded=false when the
// block's first id is already present (blocks are loaded atomically, so one
// probe is enough).
func (ld *Loader) loadBlock(ctx context.Context, ref blocks.BlockRef) (loaded bool, count int, err error) {
	vectors, paths, err := ref.Read()
	if err != nil {
		return false, 0, err
	}
	if len(paths) == 0 {
		return false, 0, nil
	}

	existing, err := ld.collection.Get(ctx, paths[:1])
	if err != nil {
		return false, 0, err
	}
	if len(existing) > 0 {
		return false, 0, nil
	}

	entries := make([]collection.Entry, len(paths))
	arts := make([]*models.Artwork, len(paths))
	for i, path := range paths {
		meta := artmeta.Parse(path)
		entries[i] = collection.Entry{ID: path, Vector: vectors[i], Metadata: meta}
		arts[i] = &models.Artwork{Path: path, Metadata: meta}
	}
	if err := ld.collection.Upsert(ctx, entries); err != nil {
		return false, 0, err
	}
	if ld.metadataIndex != nil {
		if err := ld.metadataIndex.IndexBatch(ctx, arts); err != nil {
			return false, 0, fmt.Errorf("keyword-index block: %w", err)
		}
	}
	return true, len(paths), nil
}
