package blocks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingPairedBlock reports a block whose paths file does not exist.
var ErrMissingPairedBlock = errors.New("blocks: paths file missing for block")

// BlockRef identifies a discovered block pair on disk.
type BlockRef struct {
	Dir   string
	Index int
}

// EmbeddingsPath returns the full path of the block's embeddings file.
func (b BlockRef) EmbeddingsPath() string {
	return filepath.Join(b.Dir, EmbeddingsFileName(b.Index))
}

// PathsPath returns the full path of the block's paths file.
func (b BlockRef) PathsPath() string {
	return filepath.Join(b.Dir, PathsFileName(b.Index))
}

// Discover lists block pairs in dir by their embeddings files, sorted ascending
// by block index. Numbering gaps are tolerated; embeddings files whose index
// suffix cannot be parsed are returned in skipped for the caller to log.
func Discover(dir string) (refs []BlockRef, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("blocks directory %s not found: %w", dir, err)
		}
		return nil, nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, embPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, embPrefix)
		if i := strings.IndexByte(suffix, '.'); i >= 0 {
			suffix = suffix[:i]
		}
		index, parseErr := strconv.Atoi(suffix)
		if parseErr != nil || index < 0 {
			skipped = append(skipped, name)
			continue
		}
		refs = append(refs, BlockRef{Dir: dir, Index: index})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Index < refs[j].Index })
	return refs, skipped, nil
}

// Read loads the block's vectors and paths. It fails with ErrMissingPairedBlock
// when the paths half is absent and errors when row and line counts disagree.
func (b BlockRef) Read() ([][]float32, []string, error) {
	if _, err := os.Stat(b.PathsPath()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("block %d: %w", b.Index, ErrMissingPairedBlock)
		}
		return nil, nil, err
	}

	ef, err := os.Open(b.EmbeddingsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open embeddings for block %d: %w", b.Index, err)
	}
	defer ef.Close()
	vectors, err := readEmbeddings(ef)
	if err != nil {
		return nil, nil, fmt.Errorf("block %d: %w", b.Index, err)
	}

	pf, err := os.Open(b.PathsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open paths for block %d: %w", b.Index, err)
	}
	defer pf.Close()
	paths, err := readPaths(pf)
	if err != nil {
		return nil, nil, fmt.Errorf("block %d: %w", b.Index, err)
	}

	if len(vectors) != len(paths) {
		return nil, nil, fmt.Errorf("block %d: %d embedding rows but %d paths", b.Index, len(vectors), len(paths))
	}
	return vectors, paths, nil
}
