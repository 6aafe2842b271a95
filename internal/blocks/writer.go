package blocks

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/encoder"
)

// Writer scans an image tree, embeds each image, and flushes fixed-size blocks
// of (embedding, path) pairs to disk. One image is processed at a time; a block
// becomes durable only once both of its files are fully written.
type Writer struct {
	encoder    encoder.Encoder
	blockSize  int
	extensions []string
	logger     *zap.Logger // optional; when set, logs progress and skipped images
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets a logger for progress and per-image skip warnings.
func WithLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithExtensions overrides the indexable image extensions (default .jpg/.jpeg/.png).
func WithExtensions(exts []string) WriterOption {
	return func(w *Writer) { w.extensions = exts }
}

// NewWriter creates a block writer that embeds with enc and flushes every
// blockSize images.
func NewWriter(enc encoder.Encoder, blockSize int, opts ...WriterOption) *Writer {
	w := &Writer{
		encoder:    enc,
		blockSize:  blockSize,
		extensions: []string{".jpg", ".jpeg", ".png"},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// BuildStats summarizes a block-building run.
type BuildStats struct {
	Blocks   int // block pairs written
	Embedded int // images successfully embedded
	Skipped  int // images skipped due to read/decode failures
}

// Build enumerates images under imageRoot, embeds them, and writes block pairs
// to outDir. Individual image failures are skipped and counted; an empty tree
// produces no writes and no error. Cancellation is honored between images, so
// an interrupted run never leaves a partial block pair behind.
func (w *Writer) Build(ctx context.Context, imageRoot, outDir string) (*BuildStats, error) {
	paths, err := w.scanImages(imageRoot)
	if err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	stats := &BuildStats{}
	if len(paths) == 0 {
		if w.logger != nil {
			w.logger.Warn("no images found", zap.String("image_root", imageRoot))
		}
		return stats, nil
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	blockIdx := nextBlockIndex(outDir)
	var bufVecs [][]float32
	var bufPaths []string

	flush := func() error {
		if len(bufVecs) == 0 {
			return nil
		}
		if err := writeBlock(outDir, blockIdx, bufVecs, bufPaths); err != nil {
			return fmt.Errorf("write block %d: %w", blockIdx, err)
		}
		if w.logger != nil {
			w.logger.Info("block written",
				zap.Int("block", blockIdx),
				zap.Int("images", len(bufPaths)),
			)
		}
		stats.Blocks++
		blockIdx++
		bufVecs = nil
		bufPaths = nil
		return nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		emb, err := w.encoder.EncodeImage(ctx, path)
		if err != nil {
			stats.Skipped++
			if w.logger != nil {
				w.logger.Warn("image skipped", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		bufVecs = append(bufVecs, emb)
		bufPaths = append(bufPaths, path)
		stats.Embedded++
		if len(bufVecs) >= w.blockSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

// scanImages returns the sorted full paths of indexable images under root.
func (w *Writer) scanImages(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if w.isImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Writer) isImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// writeBlock writes the embeddings file first, the paths file last; discovery
// keys off the embeddings file, so a block missing its paths half is skipped by
// the loader rather than half-read.
func writeBlock(dir string, index int, vectors [][]float32, paths []string) error {
	embPath := filepath.Join(dir, EmbeddingsFileName(index))
	pathsPath := filepath.Join(dir, PathsFileName(index))
	if err := writeFileAtomic(embPath, func(f io.Writer) error {
		return writeEmbeddings(f, vectors)
	}); err != nil {
		return err
	}
	if err := writeFileAtomic(pathsPath, func(f io.Writer) error {
		return writePaths(f, paths)
	}); err != nil {
		// Remove the orphaned embeddings half so the pair stays all-or-nothing.
		_ = os.Remove(embPath)
		return err
	}
	return nil
}

// nextBlockIndex returns one past the highest existing block index in dir, so
// repeated runs append new blocks instead of overwriting earlier ones.
func nextBlockIndex(dir string) int {
	refs, _, err := Discover(dir)
	if err != nil || len(refs) == 0 {
		return 0
	}
	return refs[len(refs)-1].Index + 1
}
