// Package blocks writes and reads paired embedding/path block files.
//
// A block N is the pair embeddings_block_N.f32 + paths_block_N.txt. The
// embeddings file holds a uint32 dimension, a uint32 row count, then the rows as
// little-endian float32; the paths file holds one source path per line in the
// same order. Row i of the embeddings file always corresponds to line i of the
// paths file.
package blocks

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	embPrefix = "embeddings_block_"
	embExt    = ".f32"
	pathsPrefix = "paths_block_"
	pathsExt    = ".txt"
)

// EmbeddingsFileName returns the embeddings file name for block index.
func EmbeddingsFileName(index int) string {
	return fmt.Sprintf("%s%d%s", embPrefix, index, embExt)
}

// PathsFileName returns the paths file name for block index.
func PathsFileName(index int) string {
	return fmt.Sprintf("%s%d%s", pathsPrefix, index, pathsExt)
}

func writeEmbeddings(w io.Writer, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("refusing to write empty block")
	}
	dims := len(vectors[0])
	if err := binary.Write(w, binary.LittleEndian, uint32(dims)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	buf := make([]byte, dims*4)
	for i, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(vec), dims)
		}
		for j, v := range vec {
			binary.LittleEndian.PutUint32(buf[j*4:(j+1)*4], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return nil
}

func readEmbeddings(r io.Reader) ([][]float32, error) {
	var dims, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	vectors := make([][]float32, 0, count)
	buf := make([]byte, dims*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read row %d: %w", i, err)
		}
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func writePaths(w io.Writer, paths []string) error {
	bw := bufio.NewWriter(w)
	for _, p := range paths {
		if _, err := bw.WriteString(p + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, scanner.Err()
}

// writeFileAtomic writes data via fn to a temp file in the same directory and
// renames it into place, so a crash never leaves a partial file behind.
func writeFileAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".block-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
