// Package models defines core data structures for artworks, metadata, and recommendations.
package models

// Metadata describes an artwork as derived from its file path.
// Fallback is true when the path did not fully match the expected naming
// convention and the fields are a best-effort guess.
type Metadata struct {
	Author   string `json:"author"`
	Title    string `json:"title"`
	Year     string `json:"year"`
	Movement string `json:"movement"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Artwork is an indexed image. The path is the stable identifier.
type Artwork struct {
	Path string `json:"path"`
	Metadata
}

// Recommendation is the result of a mood-based lookup: the chosen artwork,
// the keyword recipe that was used as the semantic query, and an empathetic
// explanation of the choice.
type Recommendation struct {
	Artwork
	Recipe      string `json:"recipe"`
	Explanation string `json:"explanation"`
}

// RecommendRequest is the HTTP request body for a recommendation.
type RecommendRequest struct {
	Mood      string `json:"mood"`
	SessionID string `json:"session_id,omitempty"`
}

// RecommendResponse is the HTTP response for a recommendation.
type RecommendResponse struct {
	*Recommendation
	SessionID string `json:"session_id"`
}
