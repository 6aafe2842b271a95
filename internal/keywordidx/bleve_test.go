package keywordidx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nagomi-art/nagomi/internal/models"
)

func art(path, author, title, movement, year string) *models.Artwork {
	return &models.Artwork{
		Path: path,
		Metadata: models.Metadata{
			Author: author, Title: title, Movement: movement, Year: year,
		},
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	err = idx.IndexBatch(ctx, []*models.Artwork{
		art("a/dali_memory.jpg", "Salvador Dali", "The persistence of memory", "Surrealism", "1931"),
		art("b/monet_lilies.jpg", "Claude Monet", "Water lilies", "Impressionism", "1906"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.Count(); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	hits, err := idx.Search(ctx, "dali", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Path != "a/dali_memory.jpg" {
		t.Errorf("hit = %s", hits[0].Path)
	}
	if hits[0].Metadata.Movement != "Surrealism" {
		t.Errorf("stored fields not returned: %+v", hits[0].Metadata)
	}
}

func TestSearchNoResults(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	hits, err := idx.Search(context.Background(), "nothing", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}

func TestReopenExistingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, art("x/a_b.jpg", "A", "B", "Cubism", "")); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if n, _ := reopened.Count(); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
