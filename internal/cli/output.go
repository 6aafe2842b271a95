// Package cli provides CLI output utilities for Nagomi.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nagomi-art/nagomi/internal/keywordidx"
	"github.com/nagomi-art/nagomi/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRecommendation writes a recommendation card to w in the given format.
// A nil recommendation means no artwork was left to show.
func WriteRecommendation(w io.Writer, rec *models.Recommendation, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rec == nil {
			return enc.Encode(map[string]interface{}{"result": nil})
		}
		return enc.Encode(rec)
	default:
		writeRecommendationText(w, rec)
		return nil
	}
}

func writeRecommendationText(w io.Writer, rec *models.Recommendation) {
	if rec == nil {
		fmt.Fprintln(w, "\nNo matching artwork left to show. Try a different mood.")
		return
	}
	fmt.Fprintf(w, "\n─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Recipe: %s\n\n", rec.Recipe)
	fmt.Fprintf(w, "Title: %s\n", rec.Title)
	fmt.Fprintf(w, "Artist: %s\n", rec.Author)
	if rec.Year != "" {
		fmt.Fprintf(w, "Year: %s\n", rec.Year)
	}
	fmt.Fprintf(w, "Movement: %s\n", rec.Movement)
	fmt.Fprintf(w, "File: %s\n", rec.Path)
	if rec.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", rec.Explanation)
	}
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
}

// WriteSearchHits writes metadata keyword search hits to w.
func WriteSearchHits(w io.Writer, query string, hits []*keywordidx.Hit, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"query": query, "hits": hits})
	default:
		fmt.Fprintf(w, "\nFound %d artworks for %q\n\n", len(hits), query)
		for i, hit := range hits {
			fmt.Fprintf(w, "%2d. %s, %q (%s, %s)\n    %s\n",
				i+1, hit.Metadata.Author, hit.Metadata.Title,
				orNA(hit.Metadata.Year), orNA(hit.Metadata.Movement), hit.Path)
		}
		return nil
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
