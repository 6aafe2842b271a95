// Package keywordidx provides a Bleve keyword index over artwork metadata,
// so artworks can also be found by author, title, or movement text.
package keywordidx

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/nagomi-art/nagomi/internal/models"
)

// artworkDoc is the indexed document shape.
type artworkDoc struct {
	Author   string `json:"author"`
	Title    string `json:"title"`
	Movement string `json:"movement"`
	Year     string `json:"year"`
}

// Hit is a keyword search result.
type Hit struct {
	Path     string          `json:"path"`
	Score    float64         `json:"score"`
	Metadata models.Metadata `json:"metadata"`
}

// MetadataIndex indexes artwork metadata with Bleve.
type MetadataIndex struct {
	index bleve.Index
}

// Open creates or opens a Bleve index at path. An existing index is reused so
// incremental loads do not re-index unchanged artworks.
func Open(path string) (*MetadataIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open metadata index: %w", openErr)
		}
		return &MetadataIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so "dali" matches exactly.
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("author", textField)
	docMapping.AddFieldMappingsAt("title", textField)
	docMapping.AddFieldMappingsAt("movement", textField)
	keywordField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("year", keywordField)
	im.AddDocumentMapping("artwork", docMapping)
	im.DefaultType = "artwork"
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata index: %w", err)
	}
	return &MetadataIndex{index: index}, nil
}

// Index indexes one artwork keyed by its path.
func (m *MetadataIndex) Index(ctx context.Context, art *models.Artwork) error {
	return m.index.Index(art.Path, artworkDoc{
		Author:   art.Author,
		Title:    art.Title,
		Movement: art.Movement,
		Year:     art.Year,
	})
}

// IndexBatch indexes artworks in one Bleve batch.
func (m *MetadataIndex) IndexBatch(ctx context.Context, arts []*models.Artwork) error {
	batch := m.index.NewBatch()
	for _, art := range arts {
		if err := batch.Index(art.Path, artworkDoc{
			Author:   art.Author,
			Title:    art.Title,
			Movement: art.Movement,
			Year:     art.Year,
		}); err != nil {
			return err
		}
	}
	return m.index.Batch(batch)
}

// Search runs a match query over author, title, and movement and returns up to
// limit hits, best first.
func (m *MetadataIndex) Search(ctx context.Context, query string, limit int) ([]*Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"author", "title", "movement", "year"}

	res, err := m.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("metadata search failed: %w", err)
	}

	hits := make([]*Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := &Hit{Path: h.ID, Score: h.Score}
		hit.Metadata.Author = stringField(h.Fields, "author")
		hit.Metadata.Title = stringField(h.Fields, "title")
		hit.Metadata.Movement = stringField(h.Fields, "movement")
		hit.Metadata.Year = stringField(h.Fields, "year")
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes one artwork from the index. Unknown paths are a no-op.
func (m *MetadataIndex) Delete(path string) error {
	return m.index.Delete(path)
}

// Count returns the number of indexed artworks.
func (m *MetadataIndex) Count() (uint64, error) {
	return m.index.DocCount()
}

// Close closes the index.
func (m *MetadataIndex) Close() error {
	return m.index.Close()
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
